package service_interfaces

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
)

type BankService interface {
	ListRemoteBanks(ctx context.Context) (commons.Response[[]models.RemoteBankResponse], error)
}
