package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	// Prometheus exposition
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Get("/devices", s.handleListDevices)
		r.Get("/failures", s.handleListFailures)
		r.Get("/snapshots/latest", s.handleLatestSnapshot)

		// WebSocket live feed
		r.Get("/ws", s.handleWebSocket)

		// Frame ingest (bearer token when a JWT secret is configured)
		if s.frames {
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/frames", s.handleSubmitFrame)
			})
		}
	})

	return r
}
