package domain

import "time"

type SecretPurpose string

const (
	SecretPurposeCardView SecretPurpose = "CARD_VIEW"
	SecretPurposeLogin    SecretPurpose = "LOGIN"
)

// OneTimeSecret is a short-lived credential bound to (user, purpose). Only a
// one-way derivation of the code is stored; a secret is consumed exactly once
// on successful match.
type OneTimeSecret struct {
	ID         string
	UserID     string
	Purpose    SecretPurpose
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
