package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
)

func logRequest(r *http.Request, payload any) {
	logger.Info("http request", logger.Fields{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"payload": logger.SanitizePayload(payload),
	})
}

func logResponse(r *http.Request, status int, start time.Time) {
	logger.Info("http response", logger.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}

// statusFromError maps the sentinel wrapped in a failed service call to an
// HTTP status. Message text is presentation only and never drives the status.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, commons.ErrValidation),
		errors.Is(err, commons.ErrAccountInactive),
		errors.Is(err, commons.ErrCurrencyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, commons.ErrInvalidCredentials),
		errors.Is(err, commons.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, commons.ErrSecretExpired),
		errors.Is(err, commons.ErrSecretConsumed),
		errors.Is(err, commons.ErrSecretMismatch):
		return http.StatusForbidden
	case errors.Is(err, commons.ErrRecordNotFound),
		errors.Is(err, commons.ErrNotOwner):
		return http.StatusNotFound
	case errors.Is(err, commons.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, commons.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
