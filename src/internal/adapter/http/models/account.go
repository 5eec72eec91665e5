package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var allowedAccountTypes = []string{"CURRENT", "SAVINGS"}
var allowedAccountStatuses = []string{"ACTIVE", "FROZEN", "CLOSED"}

type CreateAccountRequest struct {
	Alias    string `json:"alias"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	if !isOneOf(r.Type, allowedAccountTypes) {
		errs = append(errs, "type must be one of CURRENT, SAVINGS")
	}
	if len(strings.ToUpper(strings.TrimSpace(r.Currency))) != 3 {
		errs = append(errs, "currency must be 3 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	ID               string           `json:"id"`
	IBAN             string           `json:"iban"`
	Alias            string           `json:"alias"`
	Type             string           `json:"type"`
	Currency         string           `json:"currency"`
	AvailableBalance *decimal.Decimal `json:"availableBalance"`
	LedgerBalance    *decimal.Decimal `json:"ledgerBalance"`
	PendingBalance   *decimal.Decimal `json:"pendingBalance"`
	Status           string           `json:"status"`
	CreatedAt        string           `json:"createdAt"`
}

type UpdateAccountStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateAccountStatusRequest) Validate() error {
	if !isOneOf(r.Status, allowedAccountStatuses) {
		return errors.New("status must be one of ACTIVE, FROZEN, CLOSED")
	}
	return nil
}

type MovementResponse struct {
	ID          string           `json:"id"`
	Reference   string           `json:"reference"`
	TransferID  *string          `json:"transferId,omitempty"`
	Type        string           `json:"type"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	Description string           `json:"description,omitempty"`
	CreatedAt   string           `json:"createdAt"`
}

type ListMovementsResponse struct {
	Movements []MovementResponse `json:"movements"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	PageSize  int                `json:"pageSize"`
}

// ListMovementsQuery carries the parsed movement-listing query string.
// Dates are inclusive and use YYYY-MM-DD.
type ListMovementsQuery struct {
	From     string
	To       string
	Type     string
	Page     int
	PageSize int
}

func (q ListMovementsQuery) Validate() error {
	var errs []string

	if q.Type != "" && !isOneOf(q.Type, []string{"DEBIT", "CREDIT"}) {
		errs = append(errs, "type must be one of DEBIT, CREDIT")
	}
	if q.Page < 0 {
		errs = append(errs, "page cannot be negative")
	}
	if q.PageSize < 0 || q.PageSize > 200 {
		errs = append(errs, "pageSize must be between 0 and 200")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isOneOf(value string, allowed []string) bool {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, trimmed) {
			return true
		}
	}
	return false
}
