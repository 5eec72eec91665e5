package service_interfaces

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
)

type CardService interface {
	CreateCard(ctx context.Context, userID string, req models.CreateCardRequest) (commons.Response[models.CardResponse], error)
	ListCards(ctx context.Context, userID string, accountID string) (commons.Response[[]models.CardResponse], error)
	RevealCard(ctx context.Context, userID string, cardID string, req models.RevealCardRequest) (commons.Response[models.RevealCardResponse], error)
}
