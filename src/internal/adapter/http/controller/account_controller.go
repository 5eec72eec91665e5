package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/middleware"
	"github.com/coralbank/transfer-settlement/src/internal/adapter/http/models"
	"github.com/coralbank/transfer-settlement/src/internal/commons"
	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

type AccountController struct {
	service service_interfaces.AccountService
}

func NewAccountController(service service_interfaces.AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	guard := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /accounts", guard(c.create))
	mux.Handle("GET /accounts", guard(c.list))
	mux.Handle("GET /accounts/{id}", guard(c.get))
	mux.Handle("PATCH /accounts/{id}/status", guard(c.updateStatus))
	mux.Handle("GET /accounts/{id}/movements", guard(c.listMovements))
}

func (c *AccountController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	response, err := c.service.CreateAccount(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, start)
}

func (c *AccountController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.ListAccounts(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}

func (c *AccountController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetAccount(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}

func (c *AccountController) updateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.UpdateAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[models.AccountResponse]("invalid request body", err.Error()))
		logResponse(r, http.StatusBadRequest, start)
		return
	}

	response, err := c.service.UpdateStatus(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}

func (c *AccountController) listMovements(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	query := models.ListMovementsQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
		Type: r.URL.Query().Get("type"),
	}
	query.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	query.PageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))

	response, err := c.service.ListMovements(r.Context(), middleware.UserIDFromContext(r.Context()), r.PathValue("id"), query)
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}
