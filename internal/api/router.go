package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only endpoints (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/thermostats/{id}", s.handleGetThermostat)
		r.Get("/entry", s.handleGetEntry)
		r.Get("/ws", s.handleWebSocket)

		// Mutating endpoints
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Patch("/entry/options", s.handleUpdateOptions)
			r.Put("/entry/api_key", s.handleUpdateAPIKey)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}
