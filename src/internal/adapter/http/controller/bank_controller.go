package controller

import (
	"net/http"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

type BankController struct {
	service service_interfaces.BankService
}

func NewBankController(service service_interfaces.BankService) *BankController {
	return &BankController{service: service}
}

func (c *BankController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.Handler(http.HandlerFunc(c.list))
	if authMiddleware != nil {
		handler = authMiddleware(handler)
	}
	mux.Handle("GET /banks", handler)
}

func (c *BankController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.ListRemoteBanks(r.Context())
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}
