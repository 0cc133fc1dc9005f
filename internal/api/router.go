package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/api/handler"
	mw "github.com/vredditbot/vredditbot/internal/api/middleware"
)

// NewRouter creates the HTTP router used in webhook mode: health probes
// plus the Telegram webhook endpoint.
func NewRouter(webhook http.Handler, healthHandler *handler.HealthHandler, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Telegram pushes updates here; the bot client validates the secret
	// token itself.
	r.Post("/webhook", webhook.ServeHTTP)

	return r
}
