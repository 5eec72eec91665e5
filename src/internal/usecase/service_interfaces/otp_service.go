package service_interfaces

import (
	"context"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
)

type OTPService interface {
	Issue(ctx context.Context, userID string, purpose domain.SecretPurpose) (commons.Response[models.RequestOTPResponse], error)
	// Verify consumes the active secret on match. A secret never verifies twice.
	Verify(ctx context.Context, userID string, purpose domain.SecretPurpose, code string) error
}
