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
)

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

const cardColumns = `id, account_id, holder, masked_pan, pan_ciphertext, cvv_ciphertext, expiry_month, expiry_year, status, created_at, updated_at`

func (r *CardRepository) Create(ctx context.Context, card domain.Card) (domain.Card, error) {
	logger.Info("card repository create", logger.Fields{
		"accountId": card.AccountID,
		"maskedPan": card.MaskedPAN,
	})

	const query = `
INSERT INTO cards (
	account_id,
	holder,
	masked_pan,
	pan_ciphertext,
	cvv_ciphertext,
	expiry_month,
	expiry_year,
	status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`

	var (
		id        string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		card.AccountID,
		card.Holder,
		card.MaskedPAN,
		card.PANCiphertext,
		card.CVVCiphertext,
		card.ExpiryMonth,
		card.ExpiryYear,
		card.Status,
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		logger.Error("card repository create failed", err, logger.Fields{"accountId": card.AccountID})
		return domain.Card{}, fmt.Errorf("create card: %w", err)
	}

	card.ID = id
	card.CreatedAt = createdAt
	card.UpdatedAt = updatedAt

	return card, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (domain.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE id = $1`, cardColumns)

	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, commons.ErrRecordNotFound
		}
		return domain.Card{}, fmt.Errorf("get card: %w", err)
	}

	return card, nil
}

func (r *CardRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE account_id = $1 ORDER BY created_at ASC`, cardColumns)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return cards, nil
}

func (r *CardRepository) SetStatus(ctx context.Context, id string, status domain.CardStatus) error {
	const query = `
UPDATE cards
SET status = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set card status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set card status rows affected: %w", err)
	}
	if rows == 0 {
		return commons.ErrRecordNotFound
	}

	return nil
}

func scanCard(row rowScanner) (domain.Card, error) {
	var card domain.Card
	if err := row.Scan(
		&card.ID,
		&card.AccountID,
		&card.Holder,
		&card.MaskedPAN,
		&card.PANCiphertext,
		&card.CVVCiphertext,
		&card.ExpiryMonth,
		&card.ExpiryYear,
		&card.Status,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return domain.Card{}, err
	}

	return card, nil
}
