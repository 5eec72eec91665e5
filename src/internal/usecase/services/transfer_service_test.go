package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/saga"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/services"
)

type ledgerStub struct {
	applyLocalFn func(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, description string) (string, error)
	getFn        func(ctx context.Context, id string) (domain.Transfer, error)
}

func (s ledgerStub) CreateOutgoingIntent(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	return transfer, nil
}

func (s ledgerStub) Reserve(context.Context, string) error                        { return nil }
func (s ledgerStub) RegisterIncomingPending(context.Context, domain.Transfer) error { return nil }
func (s ledgerStub) ConfirmDebit(context.Context, string) error                   { return nil }
func (s ledgerStub) Finalize(context.Context, string, domain.TransferState, string) error {
	return nil
}
func (s ledgerStub) Rollback(context.Context, string) error { return nil }

func (s ledgerStub) Get(ctx context.Context, id string) (domain.Transfer, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.Transfer{}, commons.ErrRecordNotFound
}

func (s ledgerStub) ApplyLocalTransfer(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, description string) (string, error) {
	if s.applyLocalFn != nil {
		return s.applyLocalFn(ctx, fromIBAN, toIBAN, amount, description)
	}
	return "", errors.New("unexpected local transfer")
}

func (s ledgerStub) ListStale(context.Context, time.Duration) ([]domain.Transfer, error) {
	return nil, nil
}

type accountRepoStub struct {
	createFn        func(ctx context.Context, account domain.Account) (domain.Account, error)
	getByIBANFn     func(ctx context.Context, iban string) (domain.Account, error)
	getByIDFn       func(ctx context.Context, id string) (domain.Account, error)
	listByUserFn    func(ctx context.Context, userID string) ([]domain.Account, error)
	setStatusFn     func(ctx context.Context, id string, status domain.AccountStatus) error
	listMovementsFn func(ctx context.Context, accountID string, filter domain.MovementFilter) ([]domain.Movement, int, error)
}

func (s accountRepoStub) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	if s.createFn != nil {
		return s.createFn(ctx, account)
	}
	return domain.Account{}, nil
}

func (s accountRepoStub) GetByIBAN(ctx context.Context, iban string) (domain.Account, error) {
	if s.getByIBANFn != nil {
		return s.getByIBANFn(ctx, iban)
	}
	return domain.Account{}, commons.ErrRecordNotFound
}

func (s accountRepoStub) GetByID(ctx context.Context, id string) (domain.Account, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return domain.Account{}, commons.ErrRecordNotFound
}

func (s accountRepoStub) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	if s.listByUserFn != nil {
		return s.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (s accountRepoStub) SetStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	if s.setStatusFn != nil {
		return s.setStatusFn(ctx, id, status)
	}
	return nil
}

func (s accountRepoStub) ListMovements(ctx context.Context, accountID string, filter domain.MovementFilter) ([]domain.Movement, int, error) {
	if s.listMovementsFn != nil {
		return s.listMovementsFn(ctx, accountID, filter)
	}
	return nil, 0, nil
}

type bankRepoStub struct {
	known map[string]domain.RemoteBank
}

func (s bankRepoStub) GetAll(context.Context) ([]domain.RemoteBank, error) {
	banks := make([]domain.RemoteBank, 0, len(s.known))
	for _, bank := range s.known {
		banks = append(banks, bank)
	}
	return banks, nil
}

func (s bankRepoStub) GetByCode(_ context.Context, code string) (domain.RemoteBank, error) {
	bank, ok := s.known[code]
	if !ok {
		return domain.RemoteBank{}, commons.ErrRecordNotFound
	}
	return bank, nil
}

type engineStub struct {
	initiateFn  func(ctx context.Context, params saga.InitiateParams) (domain.Transfer, error)
	listStaleFn func(ctx context.Context, olderThan time.Duration) ([]domain.Transfer, error)
}

func (s engineStub) Initiate(ctx context.Context, params saga.InitiateParams) (domain.Transfer, error) {
	if s.initiateFn != nil {
		return s.initiateFn(ctx, params)
	}
	return domain.Transfer{}, errors.New("unexpected initiation")
}

func (s engineStub) ListStale(ctx context.Context, olderThan time.Duration) ([]domain.Transfer, error) {
	if s.listStaleFn != nil {
		return s.listStaleFn(ctx, olderThan)
	}
	return nil, nil
}

func ownedActiveAccount(userID, iban, currency string) accountRepoStub {
	return accountRepoStub{
		getByIBANFn: func(_ context.Context, gotIBAN string) (domain.Account, error) {
			if gotIBAN != iban {
				return domain.Account{}, commons.ErrRecordNotFound
			}
			return domain.Account{
				ID:       "acc-1",
				UserID:   userID,
				IBAN:     iban,
				Currency: currency,
				Status:   domain.AccountStatusActive,
			}, nil
		},
	}
}

func validTransferRequest(toBankCode string) models.TransferRequest {
	return models.TransferRequest{
		FromAccount: "B05-000000000001",
		ToAccount:   "B03-000000000002",
		ToBankCode:  toBankCode,
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "USD",
		Description: "rent",
	}
}

func TestTransferServiceRoutesLocalTransfers(t *testing.T) {
	applied := false
	svc := services.NewTransferService(
		ledgerStub{
			applyLocalFn: func(_ context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, _ string) (string, error) {
				applied = true
				if fromIBAN != "B05-000000000001" || toIBAN != "B03-000000000002" {
					t.Fatalf("unexpected accounts %q -> %q", fromIBAN, toIBAN)
				}
				if !amount.Equal(decimal.RequireFromString("25.00")) {
					t.Fatalf("unexpected amount %s", amount)
				}
				return "ref-1", nil
			},
		},
		ownedActiveAccount("u-1", "B05-000000000001", "USD"),
		bankRepoStub{},
		engineStub{},
		"B05",
		15*time.Minute,
	)

	resp, err := svc.Transfer(context.Background(), "u-1", validTransferRequest("B05"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !applied {
		t.Fatal("expected local posting")
	}
	if resp.Data == nil || resp.Data.Status != "COMPLETED" || resp.Data.Kind != "LOCAL" {
		t.Fatalf("unexpected response %+v", resp.Data)
	}
}

func TestTransferServiceRoutesInterbankTransfers(t *testing.T) {
	initiated := false
	svc := services.NewTransferService(
		ledgerStub{},
		ownedActiveAccount("u-1", "B05-000000000001", "USD"),
		bankRepoStub{known: map[string]domain.RemoteBank{
			"B03": {BankCode: "B03", BankName: "Fir Bank"},
		}},
		engineStub{
			initiateFn: func(_ context.Context, params saga.InitiateParams) (domain.Transfer, error) {
				initiated = true
				return domain.Transfer{
					ID:          "tx-1",
					Role:        domain.TransferRoleOrigin,
					FromAccount: params.FromAccount,
					ToAccount:   params.ToAccount,
					Amount:      params.Amount,
					Currency:    params.Currency,
					State:       domain.TransferStateIntent,
				}, nil
			},
		},
		"B05",
		15*time.Minute,
	)

	resp, err := svc.Transfer(context.Background(), "u-1", validTransferRequest("B03"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !initiated {
		t.Fatal("expected saga initiation")
	}
	if resp.Data == nil || resp.Data.Status != "PENDING" || resp.Data.Kind != "INTERBANK" {
		t.Fatalf("unexpected response %+v", resp.Data)
	}
	if resp.Data.ID != "tx-1" {
		t.Fatalf("unexpected transfer id %q", resp.Data.ID)
	}
}

func TestTransferServiceRejectsUnknownBeneficiaryBank(t *testing.T) {
	svc := services.NewTransferService(
		ledgerStub{},
		ownedActiveAccount("u-1", "B05-000000000001", "USD"),
		bankRepoStub{},
		engineStub{},
		"B05",
		15*time.Minute,
	)

	_, err := svc.Transfer(context.Background(), "u-1", validTransferRequest("B99"))
	if !errors.Is(err, commons.ErrRecordNotFound) {
		t.Fatalf("expected unknown bank error, got %v", err)
	}
}

func TestTransferServiceHidesForeignAccounts(t *testing.T) {
	svc := services.NewTransferService(
		ledgerStub{},
		ownedActiveAccount("someone-else", "B05-000000000001", "USD"),
		bankRepoStub{},
		engineStub{},
		"B05",
		15*time.Minute,
	)

	_, err := svc.Transfer(context.Background(), "u-1", validTransferRequest("B05"))
	if !errors.Is(err, commons.ErrNotOwner) {
		t.Fatalf("expected ownership error, got %v", err)
	}
}

func TestTransferServiceMapsInsufficientBalance(t *testing.T) {
	svc := services.NewTransferService(
		ledgerStub{
			applyLocalFn: func(context.Context, string, string, decimal.Decimal, string) (string, error) {
				return "", commons.ErrInsufficientBalance
			},
		},
		ownedActiveAccount("u-1", "B05-000000000001", "USD"),
		bankRepoStub{},
		engineStub{},
		"B05",
		15*time.Minute,
	)

	resp, err := svc.Transfer(context.Background(), "u-1", validTransferRequest("B05"))
	if !errors.Is(err, commons.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
	if resp.Message != "Insufficient balance" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestTransferServiceGetStatusChecksVisibility(t *testing.T) {
	reason := "NO_FUNDS"
	svc := services.NewTransferService(
		ledgerStub{
			getFn: func(_ context.Context, id string) (domain.Transfer, error) {
				return domain.Transfer{
					ID:          id,
					Role:        domain.TransferRoleOrigin,
					FromAccount: "B05-000000000001",
					ToAccount:   "B03-000000000002",
					Amount:      decimal.RequireFromString("25.00"),
					Currency:    "USD",
					State:       domain.TransferStateRejected,
					Reason:      &reason,
				}, nil
			},
		},
		ownedActiveAccount("u-1", "B05-000000000001", "USD"),
		bankRepoStub{},
		engineStub{},
		"B05",
		15*time.Minute,
	)

	resp, err := svc.GetStatus(context.Background(), "u-1", "tx-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data == nil || resp.Data.State != "REJECTED" || resp.Data.Reason == nil {
		t.Fatalf("unexpected response %+v", resp.Data)
	}

	_, err = svc.GetStatus(context.Background(), "someone-else", "tx-1")
	if !errors.Is(err, commons.ErrNotOwner) {
		t.Fatalf("expected ownership error, got %v", err)
	}
}

func TestTransferServiceListStale(t *testing.T) {
	svc := services.NewTransferService(
		ledgerStub{},
		accountRepoStub{},
		bankRepoStub{},
		engineStub{
			listStaleFn: func(_ context.Context, olderThan time.Duration) ([]domain.Transfer, error) {
				if olderThan != 15*time.Minute {
					t.Fatalf("unexpected threshold %s", olderThan)
				}
				return []domain.Transfer{{
					ID:        "tx-1",
					Role:      domain.TransferRoleOrigin,
					State:     domain.TransferStateReserved,
					UpdatedAt: time.Now().Add(-time.Hour),
				}}, nil
			},
		},
		"B05",
		15*time.Minute,
	)

	resp, err := svc.ListStale(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if resp.Data == nil || len(resp.Data.Transfers) != 1 {
		t.Fatal("expected one stale transfer")
	}
	if resp.Data.Transfers[0].AgeSeconds < 3500 {
		t.Fatalf("unexpected age %d", resp.Data.Transfers[0].AgeSeconds)
	}
}
