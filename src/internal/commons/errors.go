package commons

import "errors"

// Sentinel errors produced at the data layer. Callers branch with errors.Is
// instead of matching message text.
var (
	ErrValidation          = errors.New("validation failed")
	ErrRecordNotFound      = errors.New("record not found")
	ErrDuplicateRecord     = errors.New("duplicate record")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountInactive     = errors.New("account is not active")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrInvalidState        = errors.New("invalid state for requested transition")
	ErrTerminalState       = errors.New("transfer already in terminal state")
	ErrNotOwner            = errors.New("resource does not belong to caller")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrSecretExpired       = errors.New("one-time secret expired")
	ErrSecretConsumed      = errors.New("one-time secret already used")
	ErrSecretMismatch      = errors.New("one-time secret does not match")
)
