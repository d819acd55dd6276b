package router

import (
	"net/http"

	"github.com/arko-chat/paybridge/internal/handlers"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// New wires the transport. auth guards everything under /v1. metrics may be
// nil to leave /metrics unmounted.
func New(
	h *handlers.Handler,
	auth func(http.Handler) http.Handler,
	metrics http.Handler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)

	r.Get("/", h.HandleStatus)
	r.Get("/healthz", h.HandleHealth)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)

		r.Post("/commands/{command}", h.HandleCommand)
		r.Get("/events", h.HandleEvents)
	})

	return r
}
