package v1

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the API v1 routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/config", h.GetConfig)
		r.Post("/authservers/rotate", h.RotateAuthServer)
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.GetClients)
			r.Delete("/{ip}", h.DeleteClient)
		})
	})

	return r
}
