package domain

import "context"

type SecretRepository interface {
	Create(ctx context.Context, secret OneTimeSecret) (OneTimeSecret, error)
	// GetActive returns the newest unconsumed, unexpired secret for the pair.
	GetActive(ctx context.Context, userID string, purpose SecretPurpose) (OneTimeSecret, error)
	// Consume marks the secret used; consuming twice returns ErrSecretConsumed.
	Consume(ctx context.Context, id string) error
}
