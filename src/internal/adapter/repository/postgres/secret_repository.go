package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
)

type SecretRepository struct {
	db *sql.DB
}

func NewSecretRepository(db *sql.DB) *SecretRepository {
	return &SecretRepository{db: db}
}

func (r *SecretRepository) Create(ctx context.Context, secret domain.OneTimeSecret) (domain.OneTimeSecret, error) {
	const query = `
INSERT INTO one_time_secrets (
	user_id,
	purpose,
	code_hash,
	expires_at
) VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	var (
		id        string
		createdAt time.Time
	)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		secret.UserID,
		secret.Purpose,
		secret.CodeHash,
		secret.ExpiresAt,
	).Scan(&id, &createdAt); err != nil {
		return domain.OneTimeSecret{}, fmt.Errorf("create one-time secret: %w", err)
	}

	secret.ID = id
	secret.CreatedAt = createdAt

	return secret, nil
}

func (r *SecretRepository) GetActive(ctx context.Context, userID string, purpose domain.SecretPurpose) (domain.OneTimeSecret, error) {
	const query = `
SELECT id, user_id, purpose, code_hash, expires_at, consumed_at, created_at
FROM one_time_secrets
WHERE user_id = $1
  AND purpose = $2
  AND consumed_at IS NULL
  AND expires_at > NOW()
ORDER BY created_at DESC
LIMIT 1`

	var (
		secret     domain.OneTimeSecret
		consumedAt sql.NullTime
	)

	if err := r.db.QueryRowContext(ctx, query, userID, purpose).Scan(
		&secret.ID,
		&secret.UserID,
		&secret.Purpose,
		&secret.CodeHash,
		&secret.ExpiresAt,
		&consumedAt,
		&secret.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OneTimeSecret{}, commons.ErrRecordNotFound
		}
		return domain.OneTimeSecret{}, fmt.Errorf("get active one-time secret: %w", err)
	}

	if consumedAt.Valid {
		value := consumedAt.Time
		secret.ConsumedAt = &value
	}

	return secret, nil
}

func (r *SecretRepository) Consume(ctx context.Context, id string) error {
	// The WHERE clause makes consumption first-wins under concurrency.
	const query = `
UPDATE one_time_secrets
SET consumed_at = NOW()
WHERE id = $1
  AND consumed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("consume one-time secret: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume one-time secret rows affected: %w", err)
	}
	if rows == 0 {
		return commons.ErrSecretConsumed
	}

	return nil
}
