package saga

// Machine-readable reason codes carried in negative acknowledgements and on
// terminal transfer records. The hub's state machine branches on these.
const (
	ReasonNoFunds         = "NO_FUNDS"
	ReasonCreditFailed    = "CREDIT_FAILED"
	ReasonDebitFailed     = "DEBIT_FAILED"
	ReasonUnknownTransfer = "UNKNOWN_TRANSFER"
	ReasonInternalError   = "INTERNAL_ERROR"
)
