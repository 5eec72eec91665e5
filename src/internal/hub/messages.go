package hub

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Event names carried in the envelope's type field. Instructions arrive from
// the hub; results go back for the three transitions that owe a reply.
const (
	EventIntent        = "transfer.intent"
	EventReserve       = "transfer.reserve"
	EventReserveResult = "transfer.reserve.result"
	EventCredit        = "transfer.credit"
	EventCreditResult  = "transfer.credit.result"
	EventDebit         = "transfer.debit"
	EventDebitResult   = "transfer.debit.result"
	EventCommit        = "transfer.commit"
	EventRollback      = "transfer.rollback"
	EventReject        = "transfer.reject"
)

// Envelope is the wire frame for every hub message. Data stays raw on the
// inbound path so the payload can be decoded once the type is known.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// IntentPayload announces a freshly persisted outgoing transfer.
type IntentPayload struct {
	ID       string          `json:"id"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// InstructionPayload covers the hub instructions that reference an existing
// attempt. Reserve, debit, commit and rollback carry only the id; credit and
// reject fill the remaining fields.
type InstructionPayload struct {
	ID       string          `json:"id"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	Amount   decimal.Decimal `json:"amount,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// ResultPayload is the acknowledgement sent back for reserve, credit and
// debit instructions.
type ResultPayload struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func encodeEnvelope(eventType string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{Type: eventType, Data: data}, nil
}

func decodeInstruction(envelope Envelope) (InstructionPayload, error) {
	var payload InstructionPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return InstructionPayload{}, fmt.Errorf("decode %s payload: %w", envelope.Type, err)
	}
	if payload.ID == "" {
		return InstructionPayload{}, fmt.Errorf("decode %s payload: missing id", envelope.Type)
	}
	return payload, nil
}
