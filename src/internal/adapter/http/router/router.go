package router

import "net/http"

type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

// New assembles the HTTP surface. Customer controllers share the bearer-token
// middleware; the operator controller gets the X-API-TOKEN middleware; the
// metrics handler is mounted unauthenticated.
func New(
	userController RouteRegistrar,
	accountController RouteRegistrar,
	transferController RouteRegistrar,
	cardController RouteRegistrar,
	bankController RouteRegistrar,
	operatorController RouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
	operatorMiddleware func(http.Handler) http.Handler,
	metricsHandler http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()
	registerSwaggerRoutes(mux)

	if userController != nil {
		userController.RegisterRoutes(mux, authMiddleware)
	}
	if accountController != nil {
		accountController.RegisterRoutes(mux, authMiddleware)
	}
	if transferController != nil {
		transferController.RegisterRoutes(mux, authMiddleware)
	}
	if cardController != nil {
		cardController.RegisterRoutes(mux, authMiddleware)
	}
	if bankController != nil {
		bankController.RegisterRoutes(mux, authMiddleware)
	}
	if operatorController != nil {
		operatorController.RegisterRoutes(mux, operatorMiddleware)
	}
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return mux
}
