package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/metrics"
	"github.com/coralbank/transfer-settlement/src/internal/saga"
)

const (
	transferKindLocal     = "LOCAL"
	transferKindInterbank = "INTERBANK"

	transferStatusCompleted = "COMPLETED"
	transferStatusPending   = "PENDING"
)

// sagaInitiator is the slice of the saga engine this service drives.
type sagaInitiator interface {
	Initiate(ctx context.Context, params saga.InitiateParams) (domain.Transfer, error)
	ListStale(ctx context.Context, olderThan time.Duration) ([]domain.Transfer, error)
}

type TransferService struct {
	ledger         domain.LedgerGateway
	accountRepo    domain.AccountRepository
	bankRepo       domain.RemoteBankRepository
	engine         sagaInitiator
	ownBankCode    string
	staleThreshold time.Duration
}

func NewTransferService(
	ledger domain.LedgerGateway,
	accountRepo domain.AccountRepository,
	bankRepo domain.RemoteBankRepository,
	engine sagaInitiator,
	ownBankCode string,
	staleThreshold time.Duration,
) *TransferService {
	return &TransferService{
		ledger:         ledger,
		accountRepo:    accountRepo,
		bankRepo:       bankRepo,
		engine:         engine,
		ownBankCode:    strings.TrimSpace(ownBankCode),
		staleThreshold: staleThreshold,
	}
}

func (s *TransferService) Transfer(ctx context.Context, userID string, req models.TransferRequest) (commons.Response[models.TransferResponse], error) {
	logger.Info("transfer service request", logger.Fields{
		"userId":  userID,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	fromAccount := strings.TrimSpace(req.FromAccount)
	toAccount := strings.TrimSpace(req.ToAccount)
	toBankCode := strings.TrimSpace(req.ToBankCode)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	source, err := s.accountRepo.GetByIBAN(ctx, fromAccount)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransferResponse]("Source account not found"), err
		}
		logger.Error("transfer service source lookup failed", err, logger.Fields{"fromAccount": fromAccount})
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", "Unable to process transfer right now"), err
	}
	if source.UserID != userID {
		err := commons.ErrNotOwner
		return commons.ErrorResponse[models.TransferResponse]("Source account not found"), err
	}
	if source.Status != domain.AccountStatusActive {
		err := commons.ErrAccountInactive
		return commons.ErrorResponse[models.TransferResponse]("validation failed", "source account is not active"), err
	}
	if source.Currency != currency {
		err := commons.ErrCurrencyMismatch
		return commons.ErrorResponse[models.TransferResponse]("validation failed", "currency does not match source account currency"), err
	}

	if toBankCode == s.ownBankCode {
		return s.localTransfer(ctx, req, fromAccount, toAccount, currency)
	}
	return s.interbankTransfer(ctx, req, fromAccount, toAccount, toBankCode, currency)
}

func (s *TransferService) localTransfer(ctx context.Context, req models.TransferRequest, fromAccount, toAccount, currency string) (commons.Response[models.TransferResponse], error) {
	reference, err := s.ledger.ApplyLocalTransfer(ctx, fromAccount, toAccount, req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		switch {
		case errors.Is(err, commons.ErrInsufficientBalance):
			return commons.ErrorResponse[models.TransferResponse]("Insufficient balance", err.Error()), err
		case errors.Is(err, commons.ErrRecordNotFound):
			return commons.ErrorResponse[models.TransferResponse]("Beneficiary account not found"), err
		case errors.Is(err, commons.ErrAccountInactive), errors.Is(err, commons.ErrCurrencyMismatch):
			return commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), err
		default:
			logger.Error("transfer service local posting failed", err, logger.Fields{
				"fromAccount": fromAccount,
				"toAccount":   toAccount,
			})
			return commons.ErrorResponse[models.TransferResponse]("transfer failed", "Unable to complete transfer posting"), err
		}
	}

	metrics.TransfersInitiated.WithLabelValues("local").Inc()
	logger.Info("transfer service local transfer complete", logger.Fields{
		"reference":   reference,
		"fromAccount": fromAccount,
		"toAccount":   toAccount,
	})

	amount := req.Amount
	response := models.TransferResponse{
		ID:          reference,
		Kind:        transferKindLocal,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Amount:      &amount,
		Currency:    currency,
		Status:      transferStatusCompleted,
		Reference:   reference,
	}
	return commons.SuccessResponse("Transaction successful", response), nil
}

func (s *TransferService) interbankTransfer(ctx context.Context, req models.TransferRequest, fromAccount, toAccount, toBankCode, currency string) (commons.Response[models.TransferResponse], error) {
	if _, err := s.bankRepo.GetByCode(ctx, toBankCode); err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransferResponse]("validation failed", "toBankCode is not a known bank"), err
		}
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", "Unable to process transfer right now"), err
	}

	transfer, err := s.engine.Initiate(ctx, saga.InitiateParams{
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Amount:      req.Amount,
		Currency:    currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, commons.ErrValidation),
			errors.Is(err, commons.ErrAccountInactive),
			errors.Is(err, commons.ErrCurrencyMismatch):
			return commons.ErrorResponse[models.TransferResponse]("validation failed", err.Error()), err
		default:
			logger.Error("transfer service interbank initiation failed", err, logger.Fields{
				"fromAccount": fromAccount,
				"toBankCode":  toBankCode,
			})
			return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", "Unable to process transfer right now"), err
		}
	}

	logger.Info("transfer service interbank transfer accepted", logger.Fields{
		"transferId": transfer.ID,
		"toBankCode": toBankCode,
	})

	amount := transfer.Amount
	response := models.TransferResponse{
		ID:          transfer.ID,
		Kind:        transferKindInterbank,
		FromAccount: transfer.FromAccount,
		ToAccount:   transfer.ToAccount,
		ToBankCode:  toBankCode,
		Amount:      &amount,
		Currency:    transfer.Currency,
		Status:      transferStatusPending,
	}
	return commons.SuccessResponse("Transfer accepted for settlement", response), nil
}

func (s *TransferService) GetStatus(ctx context.Context, userID string, transferID string) (commons.Response[models.TransferStatusResponse], error) {
	if strings.TrimSpace(transferID) == "" {
		err := fmt.Errorf("%w: transfer id is required", commons.ErrValidation)
		return commons.ErrorResponse[models.TransferStatusResponse]("validation failed", "transfer id is required"), err
	}

	transfer, err := s.ledger.Get(ctx, transferID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.TransferStatusResponse]("Transfer not found"), err
		}
		logger.Error("transfer service get status failed", err, logger.Fields{"transferId": transferID})
		return commons.ErrorResponse[models.TransferStatusResponse]("failed to get transfer", "Unable to fetch transfer right now"), err
	}

	if err := s.checkTransferVisibility(ctx, userID, transfer); err != nil {
		return commons.ErrorResponse[models.TransferStatusResponse]("Transfer not found"), err
	}

	amount := transfer.Amount
	response := models.TransferStatusResponse{
		ID:          transfer.ID,
		Role:        string(transfer.Role),
		FromAccount: transfer.FromAccount,
		ToAccount:   transfer.ToAccount,
		Amount:      &amount,
		Currency:    transfer.Currency,
		State:       string(transfer.State),
		Reason:      transfer.Reason,
		CreatedAt:   transfer.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   transfer.UpdatedAt.UTC().Format(time.RFC3339),
	}

	return commons.SuccessResponse("transfer fetched successfully", response), nil
}

// checkTransferVisibility hides transfers whose local account does not belong
// to the caller. The local side is the origin's source account or the
// destination's beneficiary account.
func (s *TransferService) checkTransferVisibility(ctx context.Context, userID string, transfer domain.Transfer) error {
	localIBAN := transfer.FromAccount
	if transfer.Role == domain.TransferRoleDestination {
		localIBAN = transfer.ToAccount
	}

	account, err := s.accountRepo.GetByIBAN(ctx, localIBAN)
	if err != nil {
		return err
	}
	if account.UserID != userID {
		return commons.ErrNotOwner
	}
	return nil
}

func (s *TransferService) ListStale(ctx context.Context) (commons.Response[models.ListStaleTransfersResponse], error) {
	stale, err := s.engine.ListStale(ctx, s.staleThreshold)
	if err != nil {
		logger.Error("transfer service list stale failed", err, nil)
		return commons.ErrorResponse[models.ListStaleTransfersResponse]("failed to list stale transfers", "Unable to list stale transfers right now"), err
	}

	now := time.Now()
	responses := make([]models.StaleTransferResponse, 0, len(stale))
	for _, transfer := range stale {
		responses = append(responses, models.StaleTransferResponse{
			ID:         transfer.ID,
			Role:       string(transfer.Role),
			State:      string(transfer.State),
			AgeSeconds: int64(transfer.AgeInState(now).Seconds()),
			UpdatedAt:  transfer.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	response := models.ListStaleTransfersResponse{
		Transfers: responses,
		Threshold: s.staleThreshold.String(),
	}

	return commons.SuccessResponse("stale transfers fetched successfully", response), nil
}
