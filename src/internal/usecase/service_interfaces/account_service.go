package service_interfaces

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
)

type AccountService interface {
	CreateAccount(ctx context.Context, userID string, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	ListAccounts(ctx context.Context, userID string) (commons.Response[[]models.AccountResponse], error)
	GetAccount(ctx context.Context, userID string, accountID string) (commons.Response[models.AccountResponse], error)
	UpdateStatus(ctx context.Context, userID string, accountID string, req models.UpdateAccountStatusRequest) (commons.Response[models.AccountResponse], error)
	ListMovements(ctx context.Context, userID string, accountID string, query models.ListMovementsQuery) (commons.Response[models.ListMovementsResponse], error)
}
