package services

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
)

// BankService lists the institutions reachable through the clearing hub, for
// beneficiary bank selection.
type BankService struct {
	bankRepo domain.RemoteBankRepository
}

func NewBankService(bankRepo domain.RemoteBankRepository) *BankService {
	return &BankService{bankRepo: bankRepo}
}

func (s *BankService) ListRemoteBanks(ctx context.Context) (commons.Response[[]models.RemoteBankResponse], error) {
	banks, err := s.bankRepo.GetAll(ctx)
	if err != nil {
		logger.Error("bank service list failed", err, nil)
		return commons.ErrorResponse[[]models.RemoteBankResponse]("failed to list banks", "Unable to list banks right now"), err
	}

	responses := make([]models.RemoteBankResponse, 0, len(banks))
	for _, bank := range banks {
		responses = append(responses, models.RemoteBankResponse{
			BankCode: bank.BankCode,
			BankName: bank.BankName,
		})
	}

	return commons.SuccessResponse("banks fetched successfully", responses), nil
}
