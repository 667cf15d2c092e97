package booking

import (
	"context"

	"github.com/robertarktes/eventhub/internal/observability"
)

type undoStep struct {
	name string
	undo func(ctx context.Context) error
}

// saga records the undo action of every side effect that has completed so a
// failed attempt can be rolled back in reverse order. A disabled saga, used
// inside a store transaction, records nothing.
type saga struct {
	enabled bool
	steps   []undoStep
	logger  observability.Logger
}

func (s *saga) done(name string, undo func(ctx context.Context) error) {
	if !s.enabled {
		return
	}
	s.steps = append(s.steps, undoStep{name: name, undo: undo})
}

// compensate runs on a context detached from the request so that a cancelled
// caller cannot leave the attempt half applied.
func (s *saga) compensate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			observability.Compensations.WithLabelValues(step.name, "failed").Inc()
			s.logger.WithError(err).WithField("step", step.name).Error("compensation failed")
			continue
		}
		observability.Compensations.WithLabelValues(step.name, "ok").Inc()
	}
	s.steps = nil
}
