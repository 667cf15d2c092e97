package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/idempotency"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/robertarktes/eventhub/internal/rateLimit"
)

// SetupRouter builds the API. rl and idemp may be nil when redis is not configured.
func SetupRouter(h *Handlers, logger observability.Logger, verifier *auth.Verifier, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	requireAuth := AuthMiddleware(verifier, logger)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(
			RateLimitMiddleware(rl, h.cfg.UserRateLimit, h.cfg.IPRateLimit),
			IdempotencyMiddleware(idemp, logger),
		).Post("/", h.CreateBooking)
		r.Get("/mine", h.MyBookings)
		r.Get("/{id}/invoice", h.Invoice)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/categories", h.Categories)
		r.Get("/organizer/{organizerId}", h.OrganizerEvents)
		r.Get("/{id}", h.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.CreateEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
		})
	})

	r.Route("/admin/events", func(r chi.Router) {
		r.Use(requireAuth, RequireRole(domain.RoleAdmin))
		r.Get("/", h.AdminEvents)
		r.Put("/{id}/approve", h.ApproveEvent)
		r.Put("/{id}/disable", h.DisableEvent)
		r.Put("/{id}/enable", h.EnableEvent)
		r.Put("/{id}/status", h.SetEventStatus)
	})

	if h.cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.cfg.UploadDir))))
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
