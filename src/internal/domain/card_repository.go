package domain

import "context"

type CardRepository interface {
	Create(ctx context.Context, card Card) (Card, error)
	GetByID(ctx context.Context, id string) (Card, error)
	ListByAccount(ctx context.Context, accountID string) ([]Card, error)
	SetStatus(ctx context.Context, id string, status CardStatus) error
}
