package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteProblemCode(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ready", h.Ready)

		r.Get("/startups", h.ListStartups)
		r.Get("/startups/{id}", h.GetStartup)
		r.Get("/startups/{id}/validation", h.GetStartupValidation)
		r.Get("/startups/{id}/metrics", h.GetStartupMetrics)

		r.Post("/offers", h.SubmitOffer)

		r.With(SyncTokenMiddleware(h.syncToken)).Post("/internal/metrics/sync", h.SyncMetrics)

		r.Group(func(r chi.Router) {
			r.Use(AdminSessionMiddleware(h.gate))
			r.Get("/admin/offers", h.ListAdminOffers)
			r.Delete("/admin/session", h.DeleteAdminSession)
		})
	})

	return r
}
