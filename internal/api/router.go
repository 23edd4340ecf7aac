package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter creates the router and registers all handlers.
func NewRouter(authHandler *AuthHandler, serversHandler *ServersHandler, sessionMiddleware func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint (public, no auth)
	r.HandleFunc("/health", HealthCheckHandler).Methods(http.MethodGet)

	// Auth routes; the login/callback/logout flows are public by nature,
	// userinfo runs under the session middleware.
	authHandler.RegisterRoutes(r, sessionMiddleware)

	// Protected API routes
	apiRouter := r.PathPrefix("/v1").Subrouter()
	apiRouter.Use(sessionMiddleware)
	serversHandler.RegisterRoutes(apiRouter)

	return r
}
