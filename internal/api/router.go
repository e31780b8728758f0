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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/state", s.handleGetDeviceState)
				r.Put("/state", s.handleSetDeviceState)
			})
		})

		// Connector endpoints
		r.Route("/connectors", func(r chi.Router) {
			r.Get("/", s.handleListConnectors)
			r.Post("/", s.handleCreateConnector)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetConnector)
				r.Patch("/", s.handleUpdateConnector)
				r.Get("/devices", s.handleListConnectorDevices)
			})
		})

		// Location / area endpoints
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", s.handleListLocations)
			r.Post("/", s.handleCreateLocation)
			r.Get("/{id}", s.handleGetLocation)
			r.Get("/{id}/areas", s.handleListLocationAreas)
		})
		r.Route("/areas", func(r chi.Router) {
			r.Get("/", s.handleListAreas)
			r.Post("/", s.handleCreateArea)
			r.Get("/{id}", s.handleGetArea)
		})

		// Automation endpoints
		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Post("/", s.handleCreateAutomation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAutomation)
				r.Put("/", s.handleUpdateAutomation)
				r.Delete("/", s.handleDeleteAutomation)
				r.Patch("/enabled", s.handleSetAutomationEnabled)
			})
		})

		// Event history
		r.Get("/events", s.handleQueryEvents)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
