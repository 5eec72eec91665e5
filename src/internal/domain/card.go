package domain

import "time"

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

// Card stores the PAN and CVV only as field-cipher ciphertexts; MaskedPAN is
// the only plaintext rendering kept ("**** **** **** 1234").
type Card struct {
	ID            string
	AccountID     string
	Holder        string
	MaskedPAN     string
	PANCiphertext string
	CVVCiphertext string
	ExpiryMonth   int
	ExpiryYear    int
	Status        CardStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
