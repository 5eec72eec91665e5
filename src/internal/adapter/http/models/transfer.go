package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	ToBankCode  string          `json:"toBankCode"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if !isIBAN(r.FromAccount) {
		errs = append(errs, "fromAccount is not a valid account number")
	}
	if !isIBAN(r.ToAccount) {
		errs = append(errs, "toAccount is not a valid account number")
	}
	if strings.TrimSpace(r.FromAccount) == strings.TrimSpace(r.ToAccount) {
		errs = append(errs, "fromAccount and toAccount cannot be the same")
	}
	if strings.TrimSpace(r.ToBankCode) == "" {
		errs = append(errs, "toBankCode is required")
	}
	if len(strings.ToUpper(strings.TrimSpace(r.Currency))) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}
	if len(strings.TrimSpace(r.Description)) > 140 {
		errs = append(errs, "description must be at most 140 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type TransferResponse struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	FromAccount string           `json:"fromAccount"`
	ToAccount   string           `json:"toAccount"`
	ToBankCode  string           `json:"toBankCode,omitempty"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
	Reference   string           `json:"reference,omitempty"`
}

type TransferStatusResponse struct {
	ID          string           `json:"id"`
	Role        string           `json:"role"`
	FromAccount string           `json:"fromAccount"`
	ToAccount   string           `json:"toAccount"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	State       string           `json:"state"`
	Reason      *string          `json:"reason,omitempty"`
	CreatedAt   string           `json:"createdAt"`
	UpdatedAt   string           `json:"updatedAt"`
}

type StaleTransferResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	State      string `json:"state"`
	AgeSeconds int64  `json:"ageSeconds"`
	UpdatedAt  string `json:"updatedAt"`
}

type ListStaleTransfersResponse struct {
	Transfers []StaleTransferResponse `json:"transfers"`
	Threshold string                  `json:"threshold"`
}

// isIBAN accepts the hub's loose account identifiers: uppercase alphanumerics
// and dashes, between 8 and 34 characters.
func isIBAN(value string) bool {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 8 || len(trimmed) > 34 {
		return false
	}
	for _, ch := range trimmed {
		if ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '-' {
			continue
		}
		return false
	}
	return true
}
