package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
)

// OTPService issues short-lived 6-digit codes and verifies them exactly once.
// Only a SHA-256 derivation of the code is stored.
type OTPService struct {
	secretRepo domain.SecretRepository
	validity   time.Duration
}

func NewOTPService(secretRepo domain.SecretRepository, validity time.Duration) *OTPService {
	return &OTPService{
		secretRepo: secretRepo,
		validity:   validity,
	}
}

func (s *OTPService) Issue(ctx context.Context, userID string, purpose domain.SecretPurpose) (commons.Response[models.RequestOTPResponse], error) {
	logger.Info("otp service issue request", logger.Fields{
		"userId":  userID,
		"purpose": purpose,
	})

	if strings.TrimSpace(userID) == "" {
		err := fmt.Errorf("%w: user id is required", commons.ErrValidation)
		return commons.ErrorResponse[models.RequestOTPResponse]("validation failed", "user id is required"), err
	}

	code := fmt.Sprintf("%06d", randomDigits(6))
	expiresAt := time.Now().Add(s.validity)

	secret := domain.OneTimeSecret{
		UserID:    userID,
		Purpose:   purpose,
		CodeHash:  hashOTPCode(code),
		ExpiresAt: expiresAt,
	}
	if _, err := s.secretRepo.Create(ctx, secret); err != nil {
		logger.Error("otp service issue store failed", err, logger.Fields{"userId": userID})
		return commons.ErrorResponse[models.RequestOTPResponse]("failed to issue code", "Unable to issue code right now"), err
	}

	// No delivery channel is wired, so the code travels in the response.
	response := models.RequestOTPResponse{
		Code:      code,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}

	return commons.SuccessResponse("code issued successfully", response), nil
}

// Verify checks the freshest unconsumed code for (user, purpose) and consumes
// it on match. A mismatch leaves the secret unconsumed.
func (s *OTPService) Verify(ctx context.Context, userID string, purpose domain.SecretPurpose, code string) error {
	secret, err := s.secretRepo.GetActive(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrSecretExpired
		}
		return err
	}

	expected := hashOTPCode(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(secret.CodeHash)) != 1 {
		logger.Info("otp service code mismatch", logger.Fields{
			"userId":  userID,
			"purpose": purpose,
		})
		return commons.ErrSecretMismatch
	}

	if err := s.secretRepo.Consume(ctx, secret.ID); err != nil {
		return err
	}

	logger.Info("otp service code verified", logger.Fields{
		"userId":  userID,
		"purpose": purpose,
	})
	return nil
}

func hashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
