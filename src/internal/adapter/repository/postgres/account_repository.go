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
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, iban, alias, account_type, currency, available_balance::text, ledger_balance::text, pending_balance::text, status, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"userId":   account.UserID,
		"iban":     account.IBAN,
		"currency": account.Currency,
	})

	const query = `
INSERT INTO accounts (
	user_id,
	iban,
	alias,
	account_type,
	currency,
	available_balance,
	ledger_balance,
	pending_balance,
	status
) VALUES ($1, $2, $3, $4, $5, $6::numeric, $6::numeric, 0, $7)
RETURNING id, created_at, updated_at`

	var (
		id        string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.UserID,
		account.IBAN,
		account.Alias,
		account.Type,
		account.Currency,
		account.AvailableBalance.StringFixed(2),
		account.Status,
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, commons.ErrDuplicateRecord
		}
		logger.Error("account repository create failed", err, logger.Fields{"iban": account.IBAN})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	account.ID = id
	account.LedgerBalance = account.AvailableBalance
	account.PendingBalance = decimal.Zero
	account.CreatedAt = createdAt
	account.UpdatedAt = updatedAt

	return account, nil
}

func (r *AccountRepository) GetByIBAN(ctx context.Context, iban string) (domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE iban = $1`, accountColumns)
	return r.getOne(ctx, query, iban)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	return r.getOne(ctx, query, id)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, commons.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE user_id = $1 ORDER BY created_at ASC`, accountColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) SetStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	logger.Info("account repository set status", logger.Fields{"accountId": id, "status": status})

	const query = `
UPDATE accounts
SET status = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("account repository set status failed", err, logger.Fields{"accountId": id})
		return fmt.Errorf("set account status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account status rows affected: %w", err)
	}
	if rows == 0 {
		return commons.ErrRecordNotFound
	}

	return nil
}

func (r *AccountRepository) ListMovements(ctx context.Context, accountID string, filter domain.MovementFilter) ([]domain.Movement, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	const query = `
SELECT id, account_id, reference, transfer_id, movement_type, amount::text, currency, description, created_at,
       COUNT(*) OVER() AS total_rows
FROM movements
WHERE account_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
  AND ($4::text IS NULL OR movement_type = $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`

	var movementType *string
	if filter.Type != nil {
		value := string(*filter.Type)
		movementType = &value
	}

	rows, err := r.db.QueryContext(ctx, query, accountID, filter.From, filter.To, movementType, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var (
		movements []domain.Movement
		total     int
	)
	for rows.Next() {
		var (
			movement   domain.Movement
			amountStr  string
			transferID sql.NullString
		)
		if err := rows.Scan(
			&movement.ID,
			&movement.AccountID,
			&movement.Reference,
			&transferID,
			&movement.Type,
			&amountStr,
			&movement.Currency,
			&movement.Description,
			&movement.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, 0, fmt.Errorf("parse movement amount: %w", err)
		}
		movement.Amount = amount
		if transferID.Valid {
			value := transferID.String
			movement.TransferID = &value
		}

		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movements: %w", err)
	}

	return movements, total, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account      domain.Account
		availableStr string
		ledgerStr    string
		pendingStr   string
	)

	if err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.IBAN,
		&account.Alias,
		&account.Type,
		&account.Currency,
		&availableStr,
		&ledgerStr,
		&pendingStr,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}

	var err error
	if account.AvailableBalance, err = decimal.NewFromString(availableStr); err != nil {
		return domain.Account{}, fmt.Errorf("parse available balance: %w", err)
	}
	if account.LedgerBalance, err = decimal.NewFromString(ledgerStr); err != nil {
		return domain.Account{}, fmt.Errorf("parse ledger balance: %w", err)
	}
	if account.PendingBalance, err = decimal.NewFromString(pendingStr); err != nil {
		return domain.Account{}, fmt.Errorf("parse pending balance: %w", err)
	}

	return account, nil
}
