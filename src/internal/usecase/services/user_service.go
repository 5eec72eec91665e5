package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/auth"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
)

type UserService struct {
	userRepo    domain.UserRepository
	tokens      *auth.TokenIssuer
	jwtValidity time.Duration
}

func NewUserService(userRepo domain.UserRepository, tokens *auth.TokenIssuer, jwtValidity time.Duration) *UserService {
	return &UserService{
		userRepo:    userRepo,
		tokens:      tokens,
		jwtValidity: jwtValidity,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterUserRequest) (commons.Response[models.RegisterUserResponse], error) {
	logger.Info("user service register request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.RegisterUserResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(req.Password)), bcrypt.DefaultCost)
	if err != nil {
		wrapped := fmt.Errorf("hash password: %w", err)
		logger.Error("user service register hash failed", wrapped, nil)
		return commons.ErrorResponse[models.RegisterUserResponse]("failed to register user", "Unable to register right now"), wrapped
	}

	user := domain.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(passwordHash),
		Role:         domain.UserRoleCustomer,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, commons.ErrDuplicateRecord) {
			return commons.ErrorResponse[models.RegisterUserResponse]("email already registered"), err
		}
		logger.Error("user service register repository failed", err, logger.Fields{
			"email": user.Email,
		})
		return commons.ErrorResponse[models.RegisterUserResponse]("failed to register user", "Unable to register right now"), err
	}

	response := models.RegisterUserResponse{
		ID:        created.ID,
		FirstName: created.FirstName,
		LastName:  created.LastName,
		Email:     created.Email,
	}

	logger.Info("user service register success", logger.Fields{
		"userId": created.ID,
	})

	return commons.SuccessResponse("user registered successfully", response), nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error) {
	logger.Info("user service login request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.LoginResponse]("validation failed", err.Error()), fmt.Errorf("%w: %s", commons.ErrValidation, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			// Same answer as a wrong password so the endpoint does not
			// confirm which emails exist.
			return commons.ErrorResponse[models.LoginResponse]("invalid credentials"), commons.ErrInvalidCredentials
		}
		logger.Error("user service login lookup failed", err, logger.Fields{"email": email})
		return commons.ErrorResponse[models.LoginResponse]("failed to login", "Unable to login right now"), err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(req.Password))); err != nil {
		logger.Info("user service login password mismatch", logger.Fields{"userId": user.ID})
		return commons.ErrorResponse[models.LoginResponse]("invalid credentials"), commons.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		logger.Error("user service login token issue failed", err, logger.Fields{"userId": user.ID})
		return commons.ErrorResponse[models.LoginResponse]("failed to login", "Unable to login right now"), err
	}

	response := models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwtValidity).UTC().Format(time.RFC3339),
	}

	logger.Info("user service login success", logger.Fields{"userId": user.ID})

	return commons.SuccessResponse("login successful", response), nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (commons.Response[models.GetUserResponse], error) {
	if strings.TrimSpace(userID) == "" {
		return commons.ErrorResponse[models.GetUserResponse]("validation failed", "user id is required"), fmt.Errorf("%w: user id is required", commons.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.ErrorResponse[models.GetUserResponse]("User not found"), err
		}
		logger.Error("user service get profile failed", err, logger.Fields{"userId": userID})
		return commons.ErrorResponse[models.GetUserResponse]("failed to get profile", "Unable to fetch profile right now"), err
	}

	response := models.GetUserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}

	return commons.SuccessResponse("profile fetched successfully", response), nil
}
