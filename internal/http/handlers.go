package http

import (
	"context"
	"net/http"
	"time"

	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/catalog"
	"github.com/robertarktes/eventhub/internal/config"
	"github.com/robertarktes/eventhub/internal/observability"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Handlers struct {
	cfg      *config.Config
	catalog  *catalog.Service
	bookings *booking.Engine
	logger   observability.Logger
	checks   map[string]ReadyCheck
	now      func() time.Time
}

func NewHandlers(cfg *config.Config, cat *catalog.Service, bookings *booking.Engine, logger observability.Logger, checks map[string]ReadyCheck) *Handlers {
	return &Handlers{
		cfg:      cfg,
		catalog:  cat,
		bookings: bookings,
		logger:   logger,
		checks:   checks,
		now:      time.Now,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("readiness check failed")
			writeMessage(w, http.StatusServiceUnavailable, name+" is not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
