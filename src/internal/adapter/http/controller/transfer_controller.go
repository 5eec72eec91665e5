package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/middleware"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

type TransferController struct {
	service service_interfaces.TransferService
}

func NewTransferController(service service_interfaces.TransferService) *TransferController {
	return &TransferController{service: service}
}

func (c *TransferController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	guard := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /transfers", guard(c.transfer))
	mux.Handle("GET /transfers/{id}", guard(c.status))
}

func (c *TransferController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	response, err := c.service.Transfer(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		logError(r, err, logger.Fields{"message": response.Message})
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	// Interbank settlement is asynchronous; the saga resolves the final
	// state after the hub round trips.
	status := http.StatusOK
	if response.Data != nil && response.Data.Status == "PENDING" {
		status = http.StatusAccepted
	}

	writeJSON(w, status, response)
	logResponse(r, status, start)
}

func (c *TransferController) status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetStatus(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}
