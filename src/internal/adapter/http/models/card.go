package models

import (
	"errors"
	"strings"
)

type CreateCardRequest struct {
	AccountID string `json:"accountId"`
	Holder    string `json:"holder"`
}

func (r CreateCardRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.AccountID) == "" {
		errs = append(errs, "accountId is required")
	}
	if strings.TrimSpace(r.Holder) == "" {
		errs = append(errs, "holder is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type CardResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId"`
	Holder      string `json:"holder"`
	MaskedPAN   string `json:"maskedPan"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	Status      string `json:"status"`
}

type RevealCardRequest struct {
	OTP string `json:"otp"`
}

func (r RevealCardRequest) Validate() error {
	code := strings.TrimSpace(r.OTP)
	if len(code) != 6 || !digitsOnly(code) {
		return errors.New("otp must be exactly 6 digits")
	}
	return nil
}

type RevealCardResponse struct {
	ID          string `json:"id"`
	PAN         string `json:"pan"`
	CVV         string `json:"cvv"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
}

type RequestOTPRequest struct {
	Purpose string `json:"purpose"`
}

func (r RequestOTPRequest) Validate() error {
	switch strings.ToUpper(strings.TrimSpace(r.Purpose)) {
	case "CARD_VIEW", "LOGIN":
		return nil
	}
	return errors.New("purpose must be one of CARD_VIEW, LOGIN")
}

type RequestOTPResponse struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expiresAt"`
}

func digitsOnly(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
