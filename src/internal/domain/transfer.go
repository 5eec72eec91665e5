package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferRole string

const (
	// TransferRoleOrigin marks transfers this bank initiated.
	TransferRoleOrigin TransferRole = "ORIGIN"
	// TransferRoleDestination marks transfers created when the hub
	// instructed this bank to receive a credit.
	TransferRoleDestination TransferRole = "DESTINATION"
)

type TransferState string

const (
	TransferStateIntent          TransferState = "INTENT"
	TransferStateReserved        TransferState = "RESERVED"
	TransferStateDebited         TransferState = "DEBITED"
	TransferStateIncomingPending TransferState = "INCOMING_PENDING"
	TransferStateCommitted       TransferState = "COMMITTED"
	TransferStateRejected        TransferState = "REJECTED"
	TransferStateRolledBack      TransferState = "ROLLED_BACK"
)

// IsTerminal reports whether no further transition is permitted.
func (s TransferState) IsTerminal() bool {
	return s == TransferStateCommitted || s == TransferStateRejected || s == TransferStateRolledBack
}

// Transfer is one interbank transfer attempt. The ID is generated by the
// initiating bank and correlates every hub message and ledger operation for
// the attempt; there is at most one record per (id, role). Rows are never
// deleted; terminal rows remain as the audit trail.
type Transfer struct {
	ID          string
	Role        TransferRole
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Currency    string
	State       TransferState
	Reason      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgeInState is how long the transfer has sat in its current state,
// the signal operators use to spot stalled sagas.
func (t Transfer) AgeInState(now time.Time) time.Duration {
	return now.Sub(t.UpdatedAt)
}
