package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
)

// memoryLedger implements LedgerGateway with the same guard semantics as the
// Postgres gateway, so engine behavior can be exercised end to end.
type memoryLedger struct {
	mu        sync.Mutex
	accounts  map[string]*domain.Account
	transfers map[string]*domain.Transfer
}

func newMemoryLedger(accounts ...domain.Account) *memoryLedger {
	ledger := &memoryLedger{
		accounts:  make(map[string]*domain.Account),
		transfers: make(map[string]*domain.Transfer),
	}
	for _, account := range accounts {
		copied := account
		ledger.accounts[account.IBAN] = &copied
	}
	return ledger
}

func (m *memoryLedger) CreateOutgoingIntent(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transfers[transfer.ID]; exists {
		return domain.Transfer{}, commons.ErrDuplicateRecord
	}
	transfer.State = domain.TransferStateIntent
	transfer.CreatedAt = time.Now()
	transfer.UpdatedAt = transfer.CreatedAt
	m.transfers[transfer.ID] = &transfer
	return transfer, nil
}

func (m *memoryLedger) Reserve(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if transfer.State != domain.TransferStateIntent {
		return commons.ErrInvalidState
	}
	account, ok := m.accounts[transfer.FromAccount]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if account.AvailableBalance.LessThan(transfer.Amount) {
		return commons.ErrInsufficientBalance
	}
	account.AvailableBalance = account.AvailableBalance.Sub(transfer.Amount)
	transfer.State = domain.TransferStateReserved
	transfer.UpdatedAt = time.Now()
	return nil
}

func (m *memoryLedger) RegisterIncomingPending(_ context.Context, transfer domain.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.transfers[transfer.ID]; ok {
		if existing.Role == domain.TransferRoleDestination {
			return nil
		}
		return commons.ErrDuplicateRecord
	}
	account, ok := m.accounts[transfer.ToAccount]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if account.Status != domain.AccountStatusActive {
		return commons.ErrAccountInactive
	}
	if account.Currency != transfer.Currency {
		return commons.ErrCurrencyMismatch
	}
	account.PendingBalance = account.PendingBalance.Add(transfer.Amount)
	transfer.State = domain.TransferStateIncomingPending
	transfer.CreatedAt = time.Now()
	transfer.UpdatedAt = transfer.CreatedAt
	stored := transfer
	m.transfers[transfer.ID] = &stored
	return nil
}

func (m *memoryLedger) ConfirmDebit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if transfer.State != domain.TransferStateReserved {
		return commons.ErrInvalidState
	}
	account := m.accounts[transfer.FromAccount]
	account.LedgerBalance = account.LedgerBalance.Sub(transfer.Amount)
	transfer.State = domain.TransferStateDebited
	transfer.UpdatedAt = time.Now()
	return nil
}

func (m *memoryLedger) Finalize(_ context.Context, id string, state domain.TransferState, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if transfer.State == state {
		return nil
	}
	if transfer.State.IsTerminal() {
		return commons.ErrTerminalState
	}

	switch state {
	case domain.TransferStateCommitted:
		if transfer.Role == domain.TransferRoleOrigin && transfer.State != domain.TransferStateDebited {
			return commons.ErrInvalidState
		}
		if transfer.Role == domain.TransferRoleDestination {
			if transfer.State != domain.TransferStateIncomingPending {
				return commons.ErrInvalidState
			}
			account := m.accounts[transfer.ToAccount]
			account.LedgerBalance = account.LedgerBalance.Add(transfer.Amount)
			account.AvailableBalance = account.AvailableBalance.Add(transfer.Amount)
			account.PendingBalance = account.PendingBalance.Sub(transfer.Amount)
		}
	case domain.TransferStateRejected:
		m.releaseLocked(transfer)
	default:
		return commons.ErrInvalidState
	}

	transfer.State = state
	if reason != "" {
		transfer.Reason = &reason
	}
	transfer.UpdatedAt = time.Now()
	return nil
}

func (m *memoryLedger) Rollback(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if transfer.State == domain.TransferStateRolledBack {
		return nil
	}
	if transfer.State.IsTerminal() {
		return commons.ErrTerminalState
	}
	m.releaseLocked(transfer)
	transfer.State = domain.TransferStateRolledBack
	transfer.UpdatedAt = time.Now()
	return nil
}

func (m *memoryLedger) releaseLocked(transfer *domain.Transfer) {
	switch transfer.State {
	case domain.TransferStateReserved:
		account := m.accounts[transfer.FromAccount]
		account.AvailableBalance = account.AvailableBalance.Add(transfer.Amount)
	case domain.TransferStateIncomingPending:
		account := m.accounts[transfer.ToAccount]
		account.PendingBalance = account.PendingBalance.Sub(transfer.Amount)
	}
}

func (m *memoryLedger) Get(_ context.Context, id string) (domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return domain.Transfer{}, commons.ErrRecordNotFound
	}
	return *transfer, nil
}

func (m *memoryLedger) ApplyLocalTransfer(context.Context, string, string, decimal.Decimal, string) (string, error) {
	return "", errors.New("not used by saga tests")
}

func (m *memoryLedger) ListStale(_ context.Context, olderThan time.Duration) ([]domain.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var stale []domain.Transfer
	for _, transfer := range m.transfers {
		if !transfer.State.IsTerminal() && transfer.UpdatedAt.Before(cutoff) {
			stale = append(stale, *transfer)
		}
	}
	return stale, nil
}

func (m *memoryLedger) account(iban string) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[iban]
}

func (m *memoryLedger) state(t *testing.T, id string) domain.TransferState {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	require.True(t, ok, "transfer %s not found", id)
	return transfer.State
}

// memoryAccounts adapts memoryLedger to the account lookup Initiate needs.
type memoryAccounts struct {
	ledger *memoryLedger
}

func (m memoryAccounts) Create(context.Context, domain.Account) (domain.Account, error) {
	return domain.Account{}, errors.New("not used by saga tests")
}

func (m memoryAccounts) GetByIBAN(_ context.Context, iban string) (domain.Account, error) {
	m.ledger.mu.Lock()
	defer m.ledger.mu.Unlock()
	account, ok := m.ledger.accounts[iban]
	if !ok {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	return *account, nil
}

func (m memoryAccounts) GetByID(context.Context, string) (domain.Account, error) {
	return domain.Account{}, errors.New("not used by saga tests")
}

func (m memoryAccounts) ListByUser(context.Context, string) ([]domain.Account, error) {
	return nil, errors.New("not used by saga tests")
}

func (m memoryAccounts) SetStatus(context.Context, string, domain.AccountStatus) error {
	return errors.New("not used by saga tests")
}

func (m memoryAccounts) ListMovements(context.Context, string, domain.MovementFilter) ([]domain.Movement, int, error) {
	return nil, 0, errors.New("not used by saga tests")
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	announced []domain.Transfer
	err       error
}

func (f *fakeAnnouncer) AnnounceIntent(_ context.Context, transfer domain.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.announced = append(f.announced, transfer)
	return nil
}

func activeAccount(iban, currency, available string) domain.Account {
	amount := decimal.RequireFromString(available)
	return domain.Account{
		ID:               "acc-" + iban,
		IBAN:             iban,
		Currency:         currency,
		AvailableBalance: amount,
		LedgerBalance:    amount,
		PendingBalance:   decimal.Zero,
		Status:           domain.AccountStatusActive,
	}
}

func newTestEngine(ledger *memoryLedger) (*Engine, *fakeAnnouncer) {
	announcer := &fakeAnnouncer{}
	return NewEngine(ledger, memoryAccounts{ledger: ledger}, announcer), announcer
}

func TestInitiateValidation(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	_, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.Zero, Currency: "USD",
	})
	assert.ErrorIs(t, err, commons.ErrValidation)

	_, err = engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-A",
		Amount: decimal.RequireFromString("10.00"), Currency: "USD",
	})
	assert.ErrorIs(t, err, commons.ErrValidation)

	_, err = engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("10.00"), Currency: "EUR",
	})
	assert.ErrorIs(t, err, commons.ErrCurrencyMismatch)

	_, err = engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-MISSING", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("10.00"), Currency: "USD",
	})
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)
}

func TestInitiateRejectsInactiveSource(t *testing.T) {
	frozen := activeAccount("IBAN-A", "USD", "100.00")
	frozen.Status = domain.AccountStatusFrozen
	ledger := newMemoryLedger(frozen)
	engine, _ := newTestEngine(ledger)

	_, err := engine.Initiate(context.Background(), InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("10.00"), Currency: "USD",
	})
	assert.ErrorIs(t, err, commons.ErrAccountInactive)
}

func TestInitiatePersistsBeforeAnnouncing(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, announcer := newTestEngine(ledger)

	transfer, err := engine.Initiate(context.Background(), InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("25.00"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, transfer.ID)
	assert.Equal(t, domain.TransferStateIntent, ledger.state(t, transfer.ID))

	require.Len(t, announcer.announced, 1)
	assert.Equal(t, transfer.ID, announcer.announced[0].ID)

	// Announcing does not touch balances; that waits for reserve.
	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestInitiateSurvivesAnnounceFailure(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	announcer := &fakeAnnouncer{err: errors.New("hub unreachable")}
	engine := NewEngine(ledger, memoryAccounts{ledger: ledger}, announcer)

	transfer, err := engine.Initiate(context.Background(), InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("25.00"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateIntent, ledger.state(t, transfer.ID))
}

func TestOriginHappyPath(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)

	ack := engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID})
	require.NotNil(t, ack)
	assert.True(t, ack.OK)
	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("60.00")), "reserve lowers available")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("100.00")), "reserve leaves ledger untouched")

	ack = engine.HandleDebit(ctx, DebitEvent{ID: transfer.ID})
	require.NotNil(t, ack)
	assert.True(t, ack.OK)
	account = ledger.account("IBAN-A")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("60.00")), "debit posts to ledger")

	engine.HandleCommit(ctx, CommitEvent{ID: transfer.ID})
	assert.Equal(t, domain.TransferStateCommitted, ledger.state(t, transfer.ID))

	account = ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("60.00")))
}

func TestDestinationHappyPath(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-B", "USD", "10.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	ack := engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-1", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NotNil(t, ack)
	assert.True(t, ack.OK)
	account := ledger.account("IBAN-B")
	assert.True(t, account.PendingBalance.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("10.00")))

	engine.HandleCommit(ctx, CommitEvent{ID: "tx-1"})
	assert.Equal(t, domain.TransferStateCommitted, ledger.state(t, "tx-1"))

	account = ledger.account("IBAN-B")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, account.PendingBalance.Equal(decimal.Zero))
}

func TestReserveInsufficientFundsNacksWithoutTouchingBalance(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "30.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)

	ack := engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
	assert.Equal(t, ReasonNoFunds, ack.Reason)

	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, domain.TransferStateIntent, ledger.state(t, transfer.ID))

	// The hub follows a failed reserve with a reject.
	engine.HandleReject(ctx, RejectEvent{ID: transfer.ID, Reason: ReasonNoFunds})
	assert.Equal(t, domain.TransferStateRejected, ledger.state(t, transfer.ID))
}

func TestReserveUnknownTransferNacks(t *testing.T) {
	engine, _ := newTestEngine(newMemoryLedger())

	ack := engine.HandleReserve(context.Background(), ReserveEvent{ID: "ghost"})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
	assert.Equal(t, ReasonUnknownTransfer, ack.Reason)
}

func TestReserveReplayAcksWithoutDoubleHold(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)

	first := engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID})
	second := engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID})
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.True(t, first.OK)
	assert.True(t, second.OK)

	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("60.00")), "hold applied once")
}

func TestCreditReplayAcksWithoutDoublePending(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-B", "USD", "0.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	event := CreditEvent{
		ID: "tx-1", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.RequireFromString("15.00"), Currency: "USD",
	}
	first := engine.HandleCredit(ctx, event)
	second := engine.HandleCredit(ctx, event)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.True(t, first.OK)
	assert.True(t, second.OK)

	account := ledger.account("IBAN-B")
	assert.True(t, account.PendingBalance.Equal(decimal.RequireFromString("15.00")))
}

func TestCreditRefusedForBadDestination(t *testing.T) {
	frozen := activeAccount("IBAN-B", "USD", "0.00")
	frozen.Status = domain.AccountStatusFrozen
	ledger := newMemoryLedger(frozen)
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	ack := engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-1", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.RequireFromString("15.00"), Currency: "USD",
	})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
	assert.Equal(t, ReasonCreditFailed, ack.Reason)

	ack = engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-2", From: "IBAN-A", To: "IBAN-MISSING",
		Amount: decimal.RequireFromString("15.00"), Currency: "USD",
	})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
	assert.Equal(t, ReasonCreditFailed, ack.Reason)

	ack = engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-3", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.Zero, Currency: "USD",
	})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
}

func TestDebitBeforeReserveNacks(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)

	ack := engine.HandleDebit(ctx, DebitEvent{ID: transfer.ID})
	require.NotNil(t, ack)
	assert.False(t, ack.OK)
	assert.Equal(t, ReasonDebitFailed, ack.Reason)

	account := ledger.account("IBAN-A")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestRollbackRestoresHold(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)
	require.True(t, engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID}).OK)

	engine.HandleRollback(ctx, RollbackEvent{ID: transfer.ID})
	assert.Equal(t, domain.TransferStateRolledBack, ledger.state(t, transfer.ID))

	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("100.00")), "hold released")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("100.00")))

	// Redelivered rollback changes nothing.
	engine.HandleRollback(ctx, RollbackEvent{ID: transfer.ID})
	account = ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestRollbackCancelsPendingCredit(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-B", "USD", "10.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	require.True(t, engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-1", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.RequireFromString("25.00"), Currency: "USD",
	}).OK)

	engine.HandleRollback(ctx, RollbackEvent{ID: "tx-1"})
	assert.Equal(t, domain.TransferStateRolledBack, ledger.state(t, "tx-1"))

	account := ledger.account("IBAN-B")
	assert.True(t, account.PendingBalance.Equal(decimal.Zero))
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("10.00")))
}

func TestCommitReplayPostsCreditOnce(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-B", "USD", "0.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	require.True(t, engine.HandleCredit(ctx, CreditEvent{
		ID: "tx-1", From: "IBAN-A", To: "IBAN-B",
		Amount: decimal.RequireFromString("25.00"), Currency: "USD",
	}).OK)

	engine.HandleCommit(ctx, CommitEvent{ID: "tx-1"})
	engine.HandleCommit(ctx, CommitEvent{ID: "tx-1"})

	account := ledger.account("IBAN-B")
	assert.True(t, account.LedgerBalance.Equal(decimal.RequireFromString("25.00")), "credit posted exactly once")
	assert.True(t, account.PendingBalance.Equal(decimal.Zero))
}

func TestTerminalTransferIgnoresFurtherEvents(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)
	require.True(t, engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID}).OK)
	engine.HandleRollback(ctx, RollbackEvent{ID: transfer.ID})

	assert.Nil(t, engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID}))
	assert.Nil(t, engine.HandleDebit(ctx, DebitEvent{ID: transfer.ID}))
	engine.HandleCommit(ctx, CommitEvent{ID: transfer.ID})
	engine.HandleReject(ctx, RejectEvent{ID: transfer.ID, Reason: ReasonNoFunds})

	assert.Equal(t, domain.TransferStateRolledBack, ledger.state(t, transfer.ID))
	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestRejectRecordsReason(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)
	require.True(t, engine.HandleReserve(ctx, ReserveEvent{ID: transfer.ID}).OK)

	engine.HandleReject(ctx, RejectEvent{ID: transfer.ID, Reason: ReasonCreditFailed})

	stored, err := ledger.Get(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateRejected, stored.State)
	require.NotNil(t, stored.Reason)
	assert.Equal(t, ReasonCreditFailed, *stored.Reason)

	// Rejecting a reserved transfer releases the hold.
	account := ledger.account("IBAN-A")
	assert.True(t, account.AvailableBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestListStaleSurfacesStuckTransfers(t *testing.T) {
	ledger := newMemoryLedger(activeAccount("IBAN-A", "USD", "100.00"))
	engine, _ := newTestEngine(ledger)
	ctx := context.Background()

	transfer, err := engine.Initiate(ctx, InitiateParams{
		FromAccount: "IBAN-A", ToAccount: "IBAN-B",
		Amount: decimal.RequireFromString("40.00"), Currency: "USD",
	})
	require.NoError(t, err)

	ledger.mu.Lock()
	ledger.transfers[transfer.ID].UpdatedAt = time.Now().Add(-time.Hour)
	ledger.mu.Unlock()

	stale, err := engine.ListStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, transfer.ID, stale[0].ID)

	stale, err = engine.ListStale(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
