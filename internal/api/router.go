package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP routes. The surface is deliberately small:
// queue visibility, health, and prometheus metrics.
func NewRouter(admin *AdminHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceMiddleware)

	r.Get("/healthz", admin.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Get("/queues", admin.Queues)
	})

	return r
}
