package service_interfaces

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
)

type TransferService interface {
	Transfer(ctx context.Context, userID string, req models.TransferRequest) (commons.Response[models.TransferResponse], error)
	GetStatus(ctx context.Context, userID string, transferID string) (commons.Response[models.TransferStatusResponse], error)
	ListStale(ctx context.Context) (commons.Response[models.ListStaleTransfersResponse], error)
}
