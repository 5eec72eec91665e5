package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementTypeDebit  MovementType = "DEBIT"
	MovementTypeCredit MovementType = "CREDIT"
)

// Movement is one posted ledger entry on an account. Reservations do not
// produce movements; only posted debits and credits do.
type Movement struct {
	ID          string
	AccountID   string
	Reference   string
	TransferID  *string
	Type        MovementType
	Amount      decimal.Decimal
	Currency    string
	Description string
	CreatedAt   time.Time
}

type MovementFilter struct {
	From     *time.Time
	To       *time.Time
	Type     *MovementType
	Page     int
	PageSize int
}
