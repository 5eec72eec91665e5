package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerGateway exposes the durable transfer-state transitions as named,
// idempotent operations keyed by transfer id. Each operation is a single
// atomic unit against the store; the state guard lives inside the operation
// so a second process instance observes the same guard. The gateway does not
// interpret protocol semantics; sequencing is the saga engine's job.
type LedgerGateway interface {
	// CreateOutgoingIntent durably records an ORIGIN transfer in INTENT state.
	CreateOutgoingIntent(ctx context.Context, transfer Transfer) (Transfer, error)

	// Reserve places a soft hold on the origin account: INTENT -> RESERVED.
	// Fails closed with ErrInsufficientBalance, leaving the balance untouched.
	Reserve(ctx context.Context, id string) error

	// RegisterIncomingPending records a DESTINATION transfer in
	// INCOMING_PENDING state and raises the destination's pending balance.
	RegisterIncomingPending(ctx context.Context, transfer Transfer) error

	// ConfirmDebit converts the soft hold into a posted debit: RESERVED -> DEBITED.
	ConfirmDebit(ctx context.Context, id string) error

	// Finalize moves the transfer to COMMITTED or REJECTED. Committing a
	// destination transfer posts the pending credit exactly once; rejecting
	// a reserved transfer releases the hold.
	Finalize(ctx context.Context, id string, state TransferState, reason string) error

	// Rollback releases the soft hold (origin) or cancels the pending
	// credit (destination): -> ROLLED_BACK.
	Rollback(ctx context.Context, id string) error

	// Get re-hydrates the transfer by correlation id regardless of role.
	Get(ctx context.Context, id string) (Transfer, error)

	// ApplyLocalTransfer moves funds between two local accounts atomically
	// and returns the movement reference. No saga is involved.
	ApplyLocalTransfer(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, description string) (string, error)

	// ListStale returns non-terminal transfers whose state has not advanced
	// within the threshold, for operator-driven reconciliation.
	ListStale(ctx context.Context, olderThan time.Duration) ([]Transfer, error)
}
