package domain

import "context"

type RemoteBankRepository interface {
	GetAll(ctx context.Context) ([]RemoteBank, error)
	GetByCode(ctx context.Context, code string) (RemoteBank, error)
}
