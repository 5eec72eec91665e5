package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
)

type AccountService struct {
	accountRepo domain.AccountRepository
	bankCode    string
}

func NewAccountService(accountRepo domain.AccountRepository, bankCode string) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		bankCode:    strings.TrimSpace(bankCode),
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, userID string, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service create request", logger.Fields{
		"userId":  userID,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	account := domain.Account{
		UserID:   userID,
		IBAN:     s.generateIBAN(),
		Alias:    strings.TrimSpace(req.Alias),
		Type:     domain.AccountType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:   domain.AccountStatusActive,
	}

	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		logger.Error("account service create repository failed", err, logger.Fields{
			"userId": userID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to create account", "Unable to create account right now"), err
	}

	logger.Info("account service create success", logger.Fields{
		"accountId": created.ID,
		"iban":      created.IBAN,
	})

	return commons.SuccessResponse("account created successfully", mapAccountToResponse(created)), nil
}

func (s *AccountService) ListAccounts(ctx context.Context, userID string) (commons.Response[[]models.AccountResponse], error) {
	accounts, err := s.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("account service list failed", err, logger.Fields{"userId": userID})
		return commons.ErrorResponse[[]models.AccountResponse]("failed to list accounts", "Unable to list accounts right now"), err
	}

	responses := make([]models.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, mapAccountToResponse(account))
	}

	return commons.SuccessResponse("accounts fetched successfully", responses), nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID string, accountID string) (commons.Response[models.AccountResponse], error) {
	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return mapAccountError[models.AccountResponse](err), err
	}

	return commons.SuccessResponse("account fetched successfully", mapAccountToResponse(account)), nil
}

func (s *AccountService) UpdateStatus(ctx context.Context, userID string, accountID string, req models.UpdateAccountStatusRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service update status request", logger.Fields{
		"accountId": accountID,
		"status":    req.Status,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return mapAccountError[models.AccountResponse](err), err
	}

	status := domain.AccountStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := s.accountRepo.SetStatus(ctx, account.ID, status); err != nil {
		logger.Error("account service update status failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to update account", "Unable to update account right now"), err
	}

	account.Status = status
	return commons.SuccessResponse("account updated successfully", mapAccountToResponse(account)), nil
}

func (s *AccountService) ListMovements(ctx context.Context, userID string, accountID string, query models.ListMovementsQuery) (commons.Response[models.ListMovementsResponse], error) {
	if err := query.Validate(); err != nil {
		return commons.ErrorResponse[models.ListMovementsResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	account, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return mapAccountError[models.ListMovementsResponse](err), err
	}

	filter, err := buildMovementFilter(query)
	if err != nil {
		return commons.ErrorResponse[models.ListMovementsResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	movements, total, err := s.accountRepo.ListMovements(ctx, account.ID, filter)
	if err != nil {
		logger.Error("account service list movements failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[models.ListMovementsResponse]("failed to list movements", "Unable to list movements right now"), err
	}

	responses := make([]models.MovementResponse, 0, len(movements))
	for _, movement := range movements {
		amount := movement.Amount
		responses = append(responses, models.MovementResponse{
			ID:          movement.ID,
			Reference:   movement.Reference,
			TransferID:  movement.TransferID,
			Type:        string(movement.Type),
			Amount:      &amount,
			Currency:    movement.Currency,
			Description: movement.Description,
			CreatedAt:   movement.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	response := models.ListMovementsResponse{
		Movements: responses,
		Total:     total,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}

	return commons.SuccessResponse("movements fetched successfully", response), nil
}

func (s *AccountService) ownedAccount(ctx context.Context, userID string, accountID string) (domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.Account{}, fmt.Errorf("%w: account id is required", commons.ErrValidation)
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if account.UserID != userID {
		return domain.Account{}, commons.ErrNotOwner
	}
	return account, nil
}

func (s *AccountService) generateIBAN() string {
	return fmt.Sprintf("%s-%012d", s.bankCode, randomDigits(12))
}

func buildMovementFilter(query models.ListMovementsQuery) (domain.MovementFilter, error) {
	filter := domain.MovementFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return domain.MovementFilter{}, fmt.Errorf("from must be in YYYY-MM-DD format")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return domain.MovementFilter{}, fmt.Errorf("to must be in YYYY-MM-DD format")
		}
		// Inclusive end of day.
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if query.Type != "" {
		movementType := domain.MovementType(strings.ToUpper(strings.TrimSpace(query.Type)))
		filter.Type = &movementType
	}

	return filter, nil
}

func mapAccountToResponse(account domain.Account) models.AccountResponse {
	available := account.AvailableBalance
	ledger := account.LedgerBalance
	pending := account.PendingBalance
	return models.AccountResponse{
		ID:               account.ID,
		IBAN:             account.IBAN,
		Alias:            account.Alias,
		Type:             string(account.Type),
		Currency:         account.Currency,
		AvailableBalance: &available,
		LedgerBalance:    &ledger,
		PendingBalance:   &pending,
		Status:           string(account.Status),
		CreatedAt:        account.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapAccountError[T any](err error) commons.Response[T] {
	switch {
	case errors.Is(err, commons.ErrRecordNotFound):
		return commons.ErrorResponse[T]("Account not found")
	case errors.Is(err, commons.ErrNotOwner):
		return commons.ErrorResponse[T]("Account not found")
	case errors.Is(err, commons.ErrValidation):
		return commons.ErrorResponse[T]("validation failed", err.Error())
	default:
		return commons.ErrorResponse[T]("failed to process request", "Unable to process request right now")
	}
}

func randomDigits(n int) int64 {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	value, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is unrecoverable for id generation.
		panic(fmt.Sprintf("random digits: %v", err))
	}
	return value.Int64()
}
