package controller

import (
	"net/http"
	"time"

	"github.com/coralbank/transfer-settlement/src/internal/usecase/service_interfaces"
)

// OperatorController exposes the reconciliation surface guarded by the
// X-API-TOKEN shared credential rather than customer bearer tokens.
type OperatorController struct {
	transferService service_interfaces.TransferService
}

func NewOperatorController(transferService service_interfaces.TransferService) *OperatorController {
	return &OperatorController{transferService: transferService}
}

func (c *OperatorController) RegisterRoutes(mux *http.ServeMux, tokenMiddleware func(http.Handler) http.Handler) {
	handler := http.Handler(http.HandlerFunc(c.listStale))
	if tokenMiddleware != nil {
		handler = tokenMiddleware(handler)
	}
	mux.Handle("GET /operator/transfers/stale", handler)
}

func (c *OperatorController) listStale(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.transferService.ListStale(r.Context())
	if err != nil {
		status := statusFromError(err)
		writeJSON(w, status, response)
		logResponse(r, status, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, start)
}
