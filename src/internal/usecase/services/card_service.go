package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/cipher"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

const cardValidityYears = 4

type CardService struct {
	cardRepo    domain.CardRepository
	accountRepo domain.AccountRepository
	fieldCipher *cipher.FieldCipher
	otpService  service_interfaces.OTPService
}

func NewCardService(
	cardRepo domain.CardRepository,
	accountRepo domain.AccountRepository,
	fieldCipher *cipher.FieldCipher,
	otpService service_interfaces.OTPService,
) *CardService {
	return &CardService{
		cardRepo:    cardRepo,
		accountRepo: accountRepo,
		fieldCipher: fieldCipher,
		otpService:  otpService,
	}
}

func (s *CardService) CreateCard(ctx context.Context, userID string, req models.CreateCardRequest) (commons.Response[models.CardResponse], error) {
	logger.Info("card service create request", logger.Fields{
		"userId":  userID,
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.CardResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.CardResponse]("Account not found"), err
		}
		logger.Error("card service account lookup failed", err, logger.Fields{"accountId": req.AccountID})
		return commons.ErrorResponse[models.CardResponse]("failed to create card", "Unable to create card right now"), err
	}
	if account.UserID != userID {
		err := commons.ErrNotOwner
		return commons.ErrorResponse[models.CardResponse]("Account not found"), err
	}
	if account.Status != domain.AccountStatusActive {
		err := commons.ErrAccountInactive
		return commons.ErrorResponse[models.CardResponse]("validation failed", "account is not active"), err
	}

	pan := generatePAN()
	cvv := fmt.Sprintf("%03d", randomDigits(3))

	panCiphertext, err := s.fieldCipher.Encrypt(pan)
	if err != nil {
		logger.Error("card service encrypt pan failed", err, nil)
		return commons.ErrorResponse[models.CardResponse]("failed to create card", "Unable to create card right now"), err
	}
	cvvCiphertext, err := s.fieldCipher.Encrypt(cvv)
	if err != nil {
		logger.Error("card service encrypt cvv failed", err, nil)
		return commons.ErrorResponse[models.CardResponse]("failed to create card", "Unable to create card right now"), err
	}

	expiry := time.Now().AddDate(cardValidityYears, 0, 0)
	card := domain.Card{
		AccountID:     account.ID,
		Holder:        req.Holder,
		MaskedPAN:     maskPAN(pan),
		PANCiphertext: panCiphertext,
		CVVCiphertext: cvvCiphertext,
		ExpiryMonth:   int(expiry.Month()),
		ExpiryYear:    expiry.Year(),
		Status:        domain.CardStatusActive,
	}

	created, err := s.cardRepo.Create(ctx, card)
	if err != nil {
		logger.Error("card service create repository failed", err, logger.Fields{"accountId": account.ID})
		return commons.ErrorResponse[models.CardResponse]("failed to create card", "Unable to create card right now"), err
	}

	logger.Info("card service create success", logger.Fields{
		"cardId":    created.ID,
		"maskedPan": created.MaskedPAN,
	})

	return commons.SuccessResponse("card created successfully", mapCardToResponse(created)), nil
}

func (s *CardService) ListCards(ctx context.Context, userID string, accountID string) (commons.Response[[]models.CardResponse], error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[[]models.CardResponse]("Account not found"), err
		}
		return commons.ErrorResponse[[]models.CardResponse]("failed to list cards", "Unable to list cards right now"), err
	}
	if account.UserID != userID {
		err := commons.ErrNotOwner
		return commons.ErrorResponse[[]models.CardResponse]("Account not found"), err
	}

	cards, err := s.cardRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		logger.Error("card service list failed", err, logger.Fields{"accountId": accountID})
		return commons.ErrorResponse[[]models.CardResponse]("failed to list cards", "Unable to list cards right now"), err
	}

	responses := make([]models.CardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, mapCardToResponse(card))
	}

	return commons.SuccessResponse("cards fetched successfully", responses), nil
}

// RevealCard returns the decrypted PAN and CVV after a fresh one-time code
// for the caller checks out.
func (s *CardService) RevealCard(ctx context.Context, userID string, cardID string, req models.RevealCardRequest) (commons.Response[models.RevealCardResponse], error) {
	logger.Info("card service reveal request", logger.Fields{
		"userId": userID,
		"cardId": cardID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.RevealCardResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.RevealCardResponse]("Card not found"), err
		}
		return commons.ErrorResponse[models.RevealCardResponse]("failed to reveal card", "Unable to reveal card right now"), err
	}

	account, err := s.accountRepo.GetByID(ctx, card.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.RevealCardResponse]("failed to reveal card", "Unable to reveal card right now"), err
	}
	if account.UserID != userID {
		err := commons.ErrNotOwner
		return commons.ErrorResponse[models.RevealCardResponse]("Card not found"), err
	}

	if err := s.otpService.Verify(ctx, userID, domain.SecretPurposeCardView, req.OTP); err != nil {
		switch {
		case errors.Is(err, commons.ErrSecretExpired):
			return commons.ErrorResponse[models.RevealCardResponse]("code expired", "request a new code"), err
		case errors.Is(err, commons.ErrSecretConsumed):
			return commons.ErrorResponse[models.RevealCardResponse]("code already used", "request a new code"), err
		case errors.Is(err, commons.ErrSecretMismatch):
			return commons.ErrorResponse[models.RevealCardResponse]("invalid code", "provided code does not match"), err
		default:
			logger.Error("card service otp verify failed", err, logger.Fields{"cardId": cardID})
			return commons.ErrorResponse[models.RevealCardResponse]("failed to reveal card", "Unable to reveal card right now"), err
		}
	}

	pan, err := s.fieldCipher.Decrypt(card.PANCiphertext)
	if err != nil {
		logger.Error("card service decrypt pan failed", err, logger.Fields{"cardId": cardID})
		return commons.ErrorResponse[models.RevealCardResponse]("failed to reveal card", "Unable to reveal card right now"), err
	}
	cvv, err := s.fieldCipher.Decrypt(card.CVVCiphertext)
	if err != nil {
		logger.Error("card service decrypt cvv failed", err, logger.Fields{"cardId": cardID})
		return commons.ErrorResponse[models.RevealCardResponse]("failed to reveal card", "Unable to reveal card right now"), err
	}

	logger.Info("card service reveal success", logger.Fields{"cardId": cardID})

	response := models.RevealCardResponse{
		ID:          card.ID,
		PAN:         pan,
		CVV:         cvv,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
	}
	return commons.SuccessResponse("card revealed successfully", response), nil
}

func mapCardToResponse(card domain.Card) models.CardResponse {
	return models.CardResponse{
		ID:          card.ID,
		AccountID:   card.AccountID,
		Holder:      card.Holder,
		MaskedPAN:   card.MaskedPAN,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
		Status:      string(card.Status),
	}
}

func generatePAN() string {
	return fmt.Sprintf("%04d%012d", 4000+randomDigits(3), randomDigits(12))
}

func maskPAN(pan string) string {
	if len(pan) < 4 {
		return "****"
	}
	return "**** **** **** " + pan[len(pan)-4:]
}
