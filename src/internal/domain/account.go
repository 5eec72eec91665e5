package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
	AccountStatusClosed AccountStatus = "CLOSED"
)

type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// Account is one local ledger account. AvailableBalance tracks funds the
// owner may spend; LedgerBalance is the posted balance. A reservation
// (soft hold) lowers AvailableBalance without touching LedgerBalance.
// PendingBalance accumulates incoming interbank credits that have not been
// committed yet.
type Account struct {
	ID               string
	UserID           string
	IBAN             string
	Alias            string
	Type             AccountType
	Currency         string
	AvailableBalance decimal.Decimal
	LedgerBalance    decimal.Decimal
	PendingBalance   decimal.Decimal
	Status           AccountStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
