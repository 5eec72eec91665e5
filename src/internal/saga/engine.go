// Package saga owns the interbank transfer state machine. The engine
// validates preconditions, drives durable transitions through the ledger
// gateway, and answers hub instructions with acknowledgements. It never
// touches the hub connection itself and never trusts in-memory state across
// events: every handler re-derives the current state from the store.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Announcer sends the outbound intent message for a freshly persisted
// transfer. Implemented by the hub transport adapter.
type Announcer interface {
	AnnounceIntent(ctx context.Context, transfer domain.Transfer) error
}

type Engine struct {
	ledger    domain.LedgerGateway
	accounts  domain.AccountRepository
	announcer Announcer
}

func NewEngine(ledger domain.LedgerGateway, accounts domain.AccountRepository, announcer Announcer) *Engine {
	return &Engine{
		ledger:    ledger,
		accounts:  accounts,
		announcer: announcer,
	}
}

type InitiateParams struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Currency    string
}

// Initiate durably records the outgoing intent and announces it to the hub.
// The write happens before the announcement so a crash between the two never
// leaves the hub holding a transfer this bank cannot account for. A failed
// announcement does not fail the initiation: the intent stays persisted and
// is resolved through reconnection or operator reconciliation.
func (e *Engine) Initiate(ctx context.Context, params InitiateParams) (domain.Transfer, error) {
	fromAccount := strings.TrimSpace(params.FromAccount)
	toAccount := strings.TrimSpace(params.ToAccount)
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))

	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.Transfer{}, fmt.Errorf("%w: amount must be greater than zero", commons.ErrValidation)
	}
	if fromAccount == "" || toAccount == "" || fromAccount == toAccount {
		return domain.Transfer{}, fmt.Errorf("%w: accounts must be distinct", commons.ErrValidation)
	}

	source, err := e.accounts.GetByIBAN(ctx, fromAccount)
	if err != nil {
		return domain.Transfer{}, err
	}
	if source.Status != domain.AccountStatusActive {
		return domain.Transfer{}, commons.ErrAccountInactive
	}
	if source.Currency != currency {
		return domain.Transfer{}, commons.ErrCurrencyMismatch
	}

	transfer := domain.Transfer{
		ID:          uuid.NewString(),
		Role:        domain.TransferRoleOrigin,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Amount:      params.Amount,
		Currency:    currency,
	}

	created, err := e.ledger.CreateOutgoingIntent(ctx, transfer)
	if err != nil {
		return domain.Transfer{}, err
	}

	metrics.TransfersInitiated.WithLabelValues("interbank").Inc()

	if err := e.announcer.AnnounceIntent(ctx, created); err != nil {
		// The intent is durable; announcement is retried out-of-band.
		logger.Error("saga announce intent failed", err, logger.Fields{
			"transferId": created.ID,
		})
	}

	return created, nil
}

// HandleReserve answers the hub's instruction to place a soft hold on the
// origin account.
func (e *Engine) HandleReserve(ctx context.Context, event ReserveEvent) *Ack {
	transfer, err := e.ledger.Get(ctx, event.ID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			logger.Info("saga reserve for unknown transfer", logger.Fields{"transferId": event.ID})
			metrics.SagaTransitions.WithLabelValues("reserve", "unknown").Inc()
			return e.negative(event.ID, "reserve", ReasonUnknownTransfer)
		}
		logger.Error("saga reserve load failed", err, logger.Fields{"transferId": event.ID})
		return e.negative(event.ID, "reserve", ReasonInternalError)
	}

	if transfer.State.IsTerminal() {
		e.ignoreTerminal("reserve", transfer)
		return nil
	}

	switch transfer.State {
	case domain.TransferStateReserved, domain.TransferStateDebited:
		// Redelivered reserve after the transition already applied.
		metrics.SagaTransitions.WithLabelValues("reserve", "replay").Inc()
		return okAck(event.ID)
	case domain.TransferStateIntent:
		if err := e.ledger.Reserve(ctx, event.ID); err != nil {
			if errors.Is(err, commons.ErrInsufficientBalance) {
				logger.Info("saga reserve insufficient funds", logger.Fields{"transferId": event.ID})
				metrics.SagaTransitions.WithLabelValues("reserve", "no_funds").Inc()
				return e.negative(event.ID, "reserve", ReasonNoFunds)
			}
			logger.Error("saga reserve failed", err, logger.Fields{"transferId": event.ID})
			return e.negative(event.ID, "reserve", ReasonInternalError)
		}
		logger.Info("saga reserved", logger.Fields{"transferId": event.ID})
		metrics.SagaTransitions.WithLabelValues("reserve", "ok").Inc()
		return okAck(event.ID)
	default:
		logger.Info("saga reserve out of order", logger.Fields{
			"transferId": event.ID,
			"state":      transfer.State,
		})
		return e.negative(event.ID, "reserve", ReasonInternalError)
	}
}

// HandleCredit answers the hub's instruction to provision an incoming
// credit at the destination. The transfer record may not exist yet; this is
// the event that creates it.
func (e *Engine) HandleCredit(ctx context.Context, event CreditEvent) *Ack {
	transfer := domain.Transfer{
		ID:          event.ID,
		Role:        domain.TransferRoleDestination,
		FromAccount: event.From,
		ToAccount:   event.To,
		Amount:      event.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(event.Currency)),
	}

	if event.Amount.LessThanOrEqual(decimal.Zero) {
		return e.negative(event.ID, "credit", ReasonCreditFailed)
	}

	if err := e.ledger.RegisterIncomingPending(ctx, transfer); err != nil {
		switch {
		case errors.Is(err, commons.ErrRecordNotFound),
			errors.Is(err, commons.ErrAccountInactive),
			errors.Is(err, commons.ErrCurrencyMismatch):
			logger.Info("saga credit refused", logger.Fields{
				"transferId": event.ID,
				"toAccount":  event.To,
				"cause":      err.Error(),
			})
			metrics.SagaTransitions.WithLabelValues("credit", "refused").Inc()
			return e.negative(event.ID, "credit", ReasonCreditFailed)
		default:
			logger.Error("saga credit failed", err, logger.Fields{"transferId": event.ID})
			return e.negative(event.ID, "credit", ReasonInternalError)
		}
	}

	logger.Info("saga incoming credit registered", logger.Fields{"transferId": event.ID})
	metrics.SagaTransitions.WithLabelValues("credit", "ok").Inc()
	return okAck(event.ID)
}

// HandleDebit converts the soft hold into a posted debit at the origin.
func (e *Engine) HandleDebit(ctx context.Context, event DebitEvent) *Ack {
	transfer, err := e.ledger.Get(ctx, event.ID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return e.negative(event.ID, "debit", ReasonUnknownTransfer)
		}
		logger.Error("saga debit load failed", err, logger.Fields{"transferId": event.ID})
		return e.negative(event.ID, "debit", ReasonInternalError)
	}

	if transfer.State.IsTerminal() {
		e.ignoreTerminal("debit", transfer)
		return nil
	}

	switch transfer.State {
	case domain.TransferStateDebited:
		metrics.SagaTransitions.WithLabelValues("debit", "replay").Inc()
		return okAck(event.ID)
	case domain.TransferStateReserved:
		if err := e.ledger.ConfirmDebit(ctx, event.ID); err != nil {
			logger.Error("saga debit failed", err, logger.Fields{"transferId": event.ID})
			return e.negative(event.ID, "debit", ReasonDebitFailed)
		}
		logger.Info("saga debited", logger.Fields{"transferId": event.ID})
		metrics.SagaTransitions.WithLabelValues("debit", "ok").Inc()
		return okAck(event.ID)
	default:
		// Debit before reserve would double-apply funds removal; refuse.
		logger.Info("saga debit out of order", logger.Fields{
			"transferId": event.ID,
			"state":      transfer.State,
		})
		return e.negative(event.ID, "debit", ReasonDebitFailed)
	}
}

// HandleCommit finalizes the transfer on both sides. The hub expects no
// reply to commit.
func (e *Engine) HandleCommit(ctx context.Context, event CommitEvent) {
	transfer, err := e.ledger.Get(ctx, event.ID)
	if err != nil {
		logger.Error("saga commit load failed", err, logger.Fields{"transferId": event.ID})
		return
	}

	if transfer.State == domain.TransferStateCommitted {
		metrics.SagaTransitions.WithLabelValues("commit", "replay").Inc()
		return
	}
	if transfer.State.IsTerminal() {
		e.ignoreTerminal("commit", transfer)
		return
	}

	if err := e.ledger.Finalize(ctx, event.ID, domain.TransferStateCommitted, ""); err != nil {
		logger.Error("saga commit failed", err, logger.Fields{
			"transferId": event.ID,
			"state":      transfer.State,
		})
		metrics.SagaTransitions.WithLabelValues("commit", "error").Inc()
		return
	}

	logger.Info("saga committed", logger.Fields{"transferId": event.ID, "role": transfer.Role})
	metrics.SagaTransitions.WithLabelValues("commit", "ok").Inc()
}

// HandleRollback compensates the provisional ledger effect. No reply.
func (e *Engine) HandleRollback(ctx context.Context, event RollbackEvent) {
	transfer, err := e.ledger.Get(ctx, event.ID)
	if err != nil {
		logger.Error("saga rollback load failed", err, logger.Fields{"transferId": event.ID})
		return
	}

	if transfer.State == domain.TransferStateRolledBack {
		metrics.SagaTransitions.WithLabelValues("rollback", "replay").Inc()
		return
	}
	if transfer.State.IsTerminal() {
		e.ignoreTerminal("rollback", transfer)
		return
	}

	if err := e.ledger.Rollback(ctx, event.ID); err != nil {
		logger.Error("saga rollback failed", err, logger.Fields{
			"transferId": event.ID,
			"state":      transfer.State,
		})
		metrics.SagaTransitions.WithLabelValues("rollback", "error").Inc()
		return
	}

	logger.Info("saga rolled back", logger.Fields{"transferId": event.ID, "role": transfer.Role})
	metrics.SagaTransitions.WithLabelValues("rollback", "ok").Inc()
}

// HandleReject records the hub's rejection and releases any soft hold. No reply.
func (e *Engine) HandleReject(ctx context.Context, event RejectEvent) {
	transfer, err := e.ledger.Get(ctx, event.ID)
	if err != nil {
		logger.Error("saga reject load failed", err, logger.Fields{"transferId": event.ID})
		return
	}

	if transfer.State == domain.TransferStateRejected {
		metrics.SagaTransitions.WithLabelValues("reject", "replay").Inc()
		return
	}
	if transfer.State.IsTerminal() {
		e.ignoreTerminal("reject", transfer)
		return
	}

	if err := e.ledger.Finalize(ctx, event.ID, domain.TransferStateRejected, event.Reason); err != nil {
		logger.Error("saga reject failed", err, logger.Fields{"transferId": event.ID})
		metrics.SagaTransitions.WithLabelValues("reject", "error").Inc()
		return
	}

	logger.Info("saga rejected", logger.Fields{
		"transferId": event.ID,
		"reason":     event.Reason,
	})
	metrics.SagaTransitions.WithLabelValues("reject", "ok").Inc()
}

// ListStale exposes transfers stuck in a non-terminal state past the
// threshold, for operator-driven reconciliation.
func (e *Engine) ListStale(ctx context.Context, olderThan time.Duration) ([]domain.Transfer, error) {
	return e.ledger.ListStale(ctx, olderThan)
}

func (e *Engine) negative(id, event, reason string) *Ack {
	metrics.NegativeAcks.WithLabelValues(reason).Inc()
	metrics.SagaTransitions.WithLabelValues(event, "nack").Inc()
	return notOkAck(id, reason)
}

func (e *Engine) ignoreTerminal(event string, transfer domain.Transfer) {
	logger.Info("saga event ignored for terminal transfer", logger.Fields{
		"event":      event,
		"transferId": transfer.ID,
		"state":      transfer.State,
	})
	metrics.SagaTransitions.WithLabelValues(event, "terminal_ignored").Inc()
}
