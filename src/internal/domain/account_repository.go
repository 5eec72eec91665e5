package domain

import "context"

type AccountRepository interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByIBAN(ctx context.Context, iban string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	SetStatus(ctx context.Context, id string, status AccountStatus) error
	ListMovements(ctx context.Context, accountID string, filter MovementFilter) ([]Movement, int, error)
}
