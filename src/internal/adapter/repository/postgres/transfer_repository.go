package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// TransferRepository implements domain.LedgerGateway. Every operation is one
// database transaction guarded by the persisted transfer state, so replays
// and concurrent instances observe the same guard.
type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

const transferColumns = `id, role, from_account, to_account, amount::text, currency, state, reason, created_at, updated_at`

func (r *TransferRepository) CreateOutgoingIntent(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	logger.Info("ledger create outgoing intent", logger.Fields{
		"transferId":  transfer.ID,
		"fromAccount": transfer.FromAccount,
		"toAccount":   transfer.ToAccount,
		"currency":    transfer.Currency,
	})

	const query = `
INSERT INTO transfers (
	id,
	role,
	from_account,
	to_account,
	amount,
	currency,
	state
) VALUES ($1, 'ORIGIN', $2, $3, $4::numeric, $5, 'INTENT')
RETURNING created_at, updated_at`

	var createdAt, updatedAt time.Time
	if err := r.db.QueryRowContext(
		ctx,
		query,
		transfer.ID,
		transfer.FromAccount,
		transfer.ToAccount,
		transfer.Amount.StringFixed(2),
		transfer.Currency,
	).Scan(&createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Transfer{}, commons.ErrDuplicateRecord
		}
		logger.Error("ledger create outgoing intent failed", err, logger.Fields{"transferId": transfer.ID})
		return domain.Transfer{}, fmt.Errorf("create outgoing intent: %w", err)
	}

	transfer.Role = domain.TransferRoleOrigin
	transfer.State = domain.TransferStateIntent
	transfer.CreatedAt = createdAt
	transfer.UpdatedAt = updatedAt

	return transfer, nil
}

func (r *TransferRepository) Reserve(ctx context.Context, id string) error {
	logger.Info("ledger reserve", logger.Fields{"transferId": id})

	return r.withTx(ctx, func(tx *sql.Tx) error {
		transfer, err := lockTransfer(ctx, tx, id, domain.TransferRoleOrigin)
		if err != nil {
			return err
		}

		// Replayed reserve after a successful transition is a no-op.
		if transfer.State == domain.TransferStateReserved {
			return nil
		}
		if transfer.State != domain.TransferStateIntent {
			return commons.ErrInvalidState
		}

		const holdQuery = `
UPDATE accounts
SET available_balance = available_balance - $2::numeric,
    updated_at = NOW()
WHERE iban = $1
  AND available_balance >= $2::numeric`

		result, err := tx.ExecContext(ctx, holdQuery, transfer.FromAccount, transfer.Amount.StringFixed(2))
		if err != nil {
			return fmt.Errorf("place soft hold: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("place soft hold rows affected: %w", err)
		}
		if rows == 0 {
			if err := accountExists(ctx, tx, transfer.FromAccount); err != nil {
				return err
			}
			return commons.ErrInsufficientBalance
		}

		return advanceState(ctx, tx, id, transfer.Role, domain.TransferStateReserved, nil)
	})
}

func (r *TransferRepository) RegisterIncomingPending(ctx context.Context, transfer domain.Transfer) error {
	logger.Info("ledger register incoming pending", logger.Fields{
		"transferId": transfer.ID,
		"toAccount":  transfer.ToAccount,
		"currency":   transfer.Currency,
	})

	return r.withTx(ctx, func(tx *sql.Tx) error {
		// A retried credit instruction finds the pending credit already
		// recorded under this id.
		_, err := lockTransfer(ctx, tx, transfer.ID, domain.TransferRoleDestination)
		if err == nil {
			return nil
		}
		if !errors.Is(err, commons.ErrRecordNotFound) {
			return err
		}

		const accountQuery = `
SELECT id, status, currency
FROM accounts
WHERE iban = $1
FOR UPDATE`

		var accountID, status, currency string
		if err := tx.QueryRowContext(ctx, accountQuery, transfer.ToAccount).Scan(&accountID, &status, &currency); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return commons.ErrRecordNotFound
			}
			return fmt.Errorf("load destination account: %w", err)
		}
		if domain.AccountStatus(status) != domain.AccountStatusActive {
			return commons.ErrAccountInactive
		}
		if currency != transfer.Currency {
			return commons.ErrCurrencyMismatch
		}

		const insertQuery = `
INSERT INTO transfers (
	id,
	role,
	from_account,
	to_account,
	amount,
	currency,
	state
) VALUES ($1, 'DESTINATION', $2, $3, $4::numeric, $5, 'INCOMING_PENDING')`

		if _, err := tx.ExecContext(
			ctx,
			insertQuery,
			transfer.ID,
			transfer.FromAccount,
			transfer.ToAccount,
			transfer.Amount.StringFixed(2),
			transfer.Currency,
		); err != nil {
			return fmt.Errorf("insert incoming transfer: %w", err)
		}

		const pendingQuery = `
UPDATE accounts
SET pending_balance = pending_balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1`

		if _, err := tx.ExecContext(ctx, pendingQuery, accountID, transfer.Amount.StringFixed(2)); err != nil {
			return fmt.Errorf("raise pending balance: %w", err)
		}

		return nil
	})
}

func (r *TransferRepository) ConfirmDebit(ctx context.Context, id string) error {
	logger.Info("ledger confirm debit", logger.Fields{"transferId": id})

	return r.withTx(ctx, func(tx *sql.Tx) error {
		transfer, err := lockTransfer(ctx, tx, id, domain.TransferRoleOrigin)
		if err != nil {
			return err
		}

		if transfer.State == domain.TransferStateDebited {
			return nil
		}
		if transfer.State != domain.TransferStateReserved {
			return commons.ErrInvalidState
		}

		// The hold already lowered available_balance; posting the debit
		// lowers the ledger balance.
		const postQuery = `
UPDATE accounts
SET ledger_balance = ledger_balance - $2::numeric,
    updated_at = NOW()
WHERE iban = $1
RETURNING id`

		var accountID string
		if err := tx.QueryRowContext(ctx, postQuery, transfer.FromAccount, transfer.Amount.StringFixed(2)).Scan(&accountID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return commons.ErrRecordNotFound
			}
			return fmt.Errorf("post debit: %w", err)
		}

		if err := insertMovement(ctx, tx, accountID, id, domain.MovementTypeDebit, transfer.Amount, transfer.Currency, "interbank transfer debit"); err != nil {
			return err
		}

		return advanceState(ctx, tx, id, transfer.Role, domain.TransferStateDebited, nil)
	})
}

func (r *TransferRepository) Finalize(ctx context.Context, id string, state domain.TransferState, reason string) error {
	logger.Info("ledger finalize", logger.Fields{"transferId": id, "state": state, "reason": reason})

	if state != domain.TransferStateCommitted && state != domain.TransferStateRejected {
		return commons.ErrInvalidState
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		transfer, err := lockTransferAnyRole(ctx, tx, id)
		if err != nil {
			return err
		}

		// Finalizing an already-finalized transfer with the same outcome is
		// a no-op; anything else on a terminal row is refused.
		if transfer.State == state {
			return nil
		}
		if transfer.State.IsTerminal() {
			return commons.ErrTerminalState
		}

		switch state {
		case domain.TransferStateCommitted:
			if err := applyCommit(ctx, tx, transfer); err != nil {
				return err
			}
		case domain.TransferStateRejected:
			if err := releaseHeldFunds(ctx, tx, transfer); err != nil {
				return err
			}
		}

		var reasonPtr *string
		if reason != "" {
			reasonPtr = &reason
		}
		return advanceState(ctx, tx, id, transfer.Role, state, reasonPtr)
	})
}

func (r *TransferRepository) Rollback(ctx context.Context, id string) error {
	logger.Info("ledger rollback", logger.Fields{"transferId": id})

	return r.withTx(ctx, func(tx *sql.Tx) error {
		transfer, err := lockTransferAnyRole(ctx, tx, id)
		if err != nil {
			return err
		}

		if transfer.State == domain.TransferStateRolledBack {
			return nil
		}
		if transfer.State.IsTerminal() {
			return commons.ErrTerminalState
		}
		if transfer.State != domain.TransferStateReserved && transfer.State != domain.TransferStateIncomingPending {
			return commons.ErrInvalidState
		}

		if err := releaseHeldFunds(ctx, tx, transfer); err != nil {
			return err
		}

		return advanceState(ctx, tx, id, transfer.Role, domain.TransferStateRolledBack, nil)
	})
}

func (r *TransferRepository) Get(ctx context.Context, id string) (domain.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1 LIMIT 1`, transferColumns)

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, commons.ErrRecordNotFound
		}
		return domain.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}

	return transfer, nil
}

func (r *TransferRepository) ApplyLocalTransfer(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, description string) (string, error) {
	logger.Info("ledger apply local transfer", logger.Fields{
		"fromAccount": fromIBAN,
		"toAccount":   toIBAN,
	})

	reference := uuid.NewString()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		// Lock both rows in IBAN order so concurrent opposite transfers
		// cannot deadlock.
		first, second := fromIBAN, toIBAN
		if first > second {
			first, second = second, first
		}

		type lockedAccount struct {
			id       string
			status   string
			currency string
		}
		locked := map[string]lockedAccount{}

		const lockQuery = `SELECT id, status, currency FROM accounts WHERE iban = $1 FOR UPDATE`
		for _, iban := range []string{first, second} {
			var acc lockedAccount
			if err := tx.QueryRowContext(ctx, lockQuery, iban).Scan(&acc.id, &acc.status, &acc.currency); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return commons.ErrRecordNotFound
				}
				return fmt.Errorf("lock account %s: %w", iban, err)
			}
			locked[iban] = acc
		}

		from := locked[fromIBAN]
		to := locked[toIBAN]
		if domain.AccountStatus(from.status) != domain.AccountStatusActive || domain.AccountStatus(to.status) != domain.AccountStatusActive {
			return commons.ErrAccountInactive
		}
		if from.currency != to.currency {
			return commons.ErrCurrencyMismatch
		}

		const debitQuery = `
UPDATE accounts
SET available_balance = available_balance - $2::numeric,
    ledger_balance = ledger_balance - $2::numeric,
    updated_at = NOW()
WHERE id = $1
  AND available_balance >= $2::numeric`

		result, err := tx.ExecContext(ctx, debitQuery, from.id, amount.StringFixed(2))
		if err != nil {
			return fmt.Errorf("debit local account: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit local account rows affected: %w", err)
		}
		if rows == 0 {
			return commons.ErrInsufficientBalance
		}

		const creditQuery = `
UPDATE accounts
SET available_balance = available_balance + $2::numeric,
    ledger_balance = ledger_balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1`

		if _, err := tx.ExecContext(ctx, creditQuery, to.id, amount.StringFixed(2)); err != nil {
			return fmt.Errorf("credit local account: %w", err)
		}

		if err := insertLocalMovement(ctx, tx, from.id, reference, domain.MovementTypeDebit, amount, from.currency, description); err != nil {
			return err
		}
		if err := insertLocalMovement(ctx, tx, to.id, reference, domain.MovementTypeCredit, amount, to.currency, description); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return reference, nil
}

func (r *TransferRepository) ListStale(ctx context.Context, olderThan time.Duration) ([]domain.Transfer, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM transfers
WHERE state NOT IN ('COMMITTED', 'REJECTED', 'ROLLED_BACK')
  AND updated_at < NOW() - ($1 * INTERVAL '1 second')
ORDER BY updated_at ASC`, transferColumns)

	rows, err := r.db.QueryContext(ctx, query, int64(olderThan.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("list stale transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale transfers: %w", err)
	}

	return transfers, nil
}

func (r *TransferRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (domain.Transfer, error) {
	var (
		transfer  domain.Transfer
		amountStr string
		reason    sql.NullString
	)

	if err := row.Scan(
		&transfer.ID,
		&transfer.Role,
		&transfer.FromAccount,
		&transfer.ToAccount,
		&amountStr,
		&transfer.Currency,
		&transfer.State,
		&reason,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	); err != nil {
		return domain.Transfer{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("parse transfer amount: %w", err)
	}
	transfer.Amount = amount

	if reason.Valid {
		value := reason.String
		transfer.Reason = &value
	}

	return transfer, nil
}

func lockTransfer(ctx context.Context, tx *sql.Tx, id string, role domain.TransferRole) (domain.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1 AND role = $2 FOR UPDATE`, transferColumns)

	transfer, err := scanTransfer(tx.QueryRowContext(ctx, query, id, role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, commons.ErrRecordNotFound
		}
		return domain.Transfer{}, fmt.Errorf("lock transfer: %w", err)
	}

	return transfer, nil
}

func lockTransferAnyRole(ctx context.Context, tx *sql.Tx, id string) (domain.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM transfers WHERE id = $1 LIMIT 1 FOR UPDATE`, transferColumns)

	transfer, err := scanTransfer(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, commons.ErrRecordNotFound
		}
		return domain.Transfer{}, fmt.Errorf("lock transfer: %w", err)
	}

	return transfer, nil
}

func advanceState(ctx context.Context, tx *sql.Tx, id string, role domain.TransferRole, state domain.TransferState, reason *string) error {
	const query = `
UPDATE transfers
SET state = $3,
    reason = COALESCE($4, reason),
    updated_at = NOW()
WHERE id = $1
  AND role = $2`

	result, err := tx.ExecContext(ctx, query, id, role, state, reason)
	if err != nil {
		return fmt.Errorf("advance transfer state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance transfer state rows affected: %w", err)
	}
	if rows == 0 {
		return commons.ErrRecordNotFound
	}

	return nil
}

func applyCommit(ctx context.Context, tx *sql.Tx, transfer domain.Transfer) error {
	switch transfer.Role {
	case domain.TransferRoleOrigin:
		// The debit was already posted; committing only closes the record.
		if transfer.State != domain.TransferStateDebited {
			return commons.ErrInvalidState
		}
		return nil
	case domain.TransferRoleDestination:
		if transfer.State != domain.TransferStateIncomingPending {
			return commons.ErrInvalidState
		}

		const postQuery = `
UPDATE accounts
SET ledger_balance = ledger_balance + $2::numeric,
    available_balance = available_balance + $2::numeric,
    pending_balance = pending_balance - $2::numeric,
    updated_at = NOW()
WHERE iban = $1
RETURNING id`

		var accountID string
		if err := tx.QueryRowContext(ctx, postQuery, transfer.ToAccount, transfer.Amount.StringFixed(2)).Scan(&accountID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return commons.ErrRecordNotFound
			}
			return fmt.Errorf("post pending credit: %w", err)
		}

		return insertMovement(ctx, tx, accountID, transfer.ID, domain.MovementTypeCredit, transfer.Amount, transfer.Currency, "interbank transfer credit")
	default:
		return commons.ErrInvalidState
	}
}

// releaseHeldFunds undoes the provisional ledger effect of a non-terminal
// state: a soft hold at the origin or a pending credit at the destination.
// States without a provisional effect (INTENT, DEBITED) release nothing.
func releaseHeldFunds(ctx context.Context, tx *sql.Tx, transfer domain.Transfer) error {
	switch transfer.State {
	case domain.TransferStateReserved:
		const releaseQuery = `
UPDATE accounts
SET available_balance = available_balance + $2::numeric,
    updated_at = NOW()
WHERE iban = $1`

		if _, err := tx.ExecContext(ctx, releaseQuery, transfer.FromAccount, transfer.Amount.StringFixed(2)); err != nil {
			return fmt.Errorf("release soft hold: %w", err)
		}
		return nil
	case domain.TransferStateIncomingPending:
		const cancelQuery = `
UPDATE accounts
SET pending_balance = pending_balance - $2::numeric,
    updated_at = NOW()
WHERE iban = $1`

		if _, err := tx.ExecContext(ctx, cancelQuery, transfer.ToAccount, transfer.Amount.StringFixed(2)); err != nil {
			return fmt.Errorf("cancel pending credit: %w", err)
		}
		return nil
	default:
		return nil
	}
}

func insertMovement(ctx context.Context, tx *sql.Tx, accountID, transferID string, movementType domain.MovementType, amount decimal.Decimal, currency, description string) error {
	const query = `
INSERT INTO movements (
	account_id,
	reference,
	transfer_id,
	movement_type,
	amount,
	currency,
	description
) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`

	if _, err := tx.ExecContext(ctx, query, accountID, transferID, transferID, movementType, amount.StringFixed(2), currency, description); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

func insertLocalMovement(ctx context.Context, tx *sql.Tx, accountID, reference string, movementType domain.MovementType, amount decimal.Decimal, currency, description string) error {
	const query = `
INSERT INTO movements (
	account_id,
	reference,
	movement_type,
	amount,
	currency,
	description
) VALUES ($1, $2, $3, $4::numeric, $5, $6)`

	if _, err := tx.ExecContext(ctx, query, accountID, reference, movementType, amount.StringFixed(2), currency, description); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

func accountExists(ctx context.Context, tx *sql.Tx, iban string) error {
	const query = `SELECT 1 FROM accounts WHERE iban = $1`

	var one int
	if err := tx.QueryRowContext(ctx, query, iban).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return commons.ErrRecordNotFound
		}
		return fmt.Errorf("check account: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
