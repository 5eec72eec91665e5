package saga

import "github.com/shopspring/decimal"

// Inbound protocol events, already decoded from the hub envelope. Every
// event carries the correlation id; amounts on the wire are advisory and the
// engine re-hydrates authoritative values from the persisted transfer.

type ReserveEvent struct {
	ID string
}

type CreditEvent struct {
	ID       string
	From     string
	To       string
	Amount   decimal.Decimal
	Currency string
}

type DebitEvent struct {
	ID string
}

type CommitEvent struct {
	ID string
}

type RollbackEvent struct {
	ID string
}

type RejectEvent struct {
	ID     string
	Reason string
}

// Ack is the engine's answer to a reserve/credit/debit instruction. A nil
// *Ack from a handler means the event was ignored (terminal record) and no
// reply is owed.
type Ack struct {
	ID     string
	OK     bool
	Reason string
}

func okAck(id string) *Ack {
	return &Ack{ID: id, OK: true}
}

func notOkAck(id, reason string) *Ack {
	return &Ack{ID: id, OK: false, Reason: reason}
}
