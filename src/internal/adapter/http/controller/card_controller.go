package controller

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/middleware"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

type CardController struct {
	cardService service_interfaces.CardService
	otpService  service_interfaces.OTPService
}

func NewCardController(cardService service_interfaces.CardService, otpService service_interfaces.OTPService) *CardController {
	return &CardController{
		cardService: cardService,
		otpService:  otpService,
	}
}

func (c *CardController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	guard := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /cards", guard(c.create))
	mux.Handle("GET /accounts/{id}/cards", guard(c.list))
	mux.Handle("POST /cards/{id}/reveal", guard(c.reveal))
	mux.Handle("POST /otp", guard(c.requestOTP))
}

func (c *CardController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.CardResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	response, err := c.cardService.CreateCard(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, start)
}

func (c *CardController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.cardService.ListCards(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}

func (c *CardController) reveal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.RevealCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.RevealCardResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	response, err := c.cardService.RevealCard(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}

func (c *CardController) requestOTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.RequestOTPResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.RequestOTPResponse]("validation failed", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	purpose := domain.SecretPurpose(strings.ToUpper(strings.TrimSpace(req.Purpose)))
	response, err := c.otpService.Issue(r.Context(), middleware.UserIDFromContext(r.Context()), purpose)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, start)
}
