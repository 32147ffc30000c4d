package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all REST routes on the given chi router.
// The websocket endpoint is mounted separately by main.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}", h.GetProject)
		r.Post("/projects/{id}/messages", h.AppendMessage)
	})
}
