package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/handler"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api/middleware"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/notifier"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Identity *identity.Service
	Sessions *session.Manager
	Hub      *notifier.Hub

	// Registry is served at /metrics when set
	Registry *prometheus.Registry

	// AdminToken guards /admin routes; empty disables them
	AdminToken string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Identity)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Identity)
	adminHandler := handler.NewAdminHandler(cfg.Sessions)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Identity)
	adminMiddleware := middleware.Admin(cfg.AdminToken)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for registering and logging in)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/refresh", playerHandler.Refresh).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/me", playerHandler.UpdateMe).Methods(http.MethodPatch)
	playerProtected.HandleFunc("/lookup", playerHandler.Lookup).Methods(http.MethodGet)

	// Session routes (all require auth)
	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.Use(authMiddleware)
	sessions.HandleFunc("", sessionHandler.Create).Methods(http.MethodPost)
	sessions.HandleFunc("", sessionHandler.List).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", sessionHandler.Move).Methods(http.MethodPatch)
	sessions.HandleFunc("/{id}/finish", sessionHandler.Finish).Methods(http.MethodPost)

	// Operator routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminMiddleware)
	admin.HandleFunc("/reconcile", adminHandler.Reconcile).Methods(http.MethodPost)

	// Observer streams (no auth, every accepted move is broadcast)
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)
	api.HandleFunc("/ws", eventsHandler.WebSocket).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Registry != nil {
		r.Handle("/metrics", observability.Handler(cfg.Registry)).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
