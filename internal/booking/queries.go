package booking

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/invoice"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ListMyBookings returns every booking of the caller, newest first, joined
// with event and ticket summaries. There is no pagination.
func (e *Engine) ListMyBookings(ctx context.Context, caller *auth.Identity) ([]View, error) {
	if caller == nil {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	logger := observability.LoggerFrom(ctx, e.logger).WithField("user_id", caller.UserID)

	bookings, err := e.store.ListBookingsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, e.transactionFailed(logger, "list bookings", err)
	}
	if len(bookings) == 0 {
		return []View{}, nil
	}

	var (
		events  map[uuid.UUID]domain.Event
		tickets map[uuid.UUID]domain.Ticket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids := lo.Uniq(lo.Map(bookings, func(b domain.Booking, _ int) uuid.UUID { return b.EventID }))
		found, err := e.store.FindEvents(gctx, domain.EventQuery{IDs: ids})
		if err != nil {
			return errors.Wrap(err, "load events")
		}
		events = lo.KeyBy(found, func(ev domain.Event) uuid.UUID { return ev.ID })
		return nil
	})
	g.Go(func() error {
		ids := lo.Uniq(lo.Map(bookings, func(b domain.Booking, _ int) uuid.UUID { return b.TicketID }))
		found, err := e.store.FindTickets(gctx, ids)
		if err != nil {
			return errors.Wrap(err, "load tickets")
		}
		tickets = lo.KeyBy(found, func(t domain.Ticket) uuid.UUID { return t.ID })
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.transactionFailed(logger, "join bookings", err)
	}

	now := e.now()
	return lo.Map(bookings, func(b domain.Booking, _ int) View {
		v := newView(b)
		if ev, ok := events[b.EventID]; ok {
			v.Event = summarizeEvent(ev, domain.EffectiveStatus(ev, now, e.loc))
		}
		if t, ok := tickets[b.TicketID]; ok {
			v.Ticket = summarizeTicket(t)
		}
		return v
	}), nil
}

type Invoice struct {
	BookingID uuid.UUID
	PDF       []byte
}

func (i *Invoice) Filename() string {
	return "invoice-" + i.BookingID.String() + ".pdf"
}

// GetInvoice renders the invoice PDF of one of the caller's bookings.
func (e *Engine) GetInvoice(ctx context.Context, caller *auth.Identity, bookingID string) (*Invoice, error) {
	ctx, span := e.tracer.Start(ctx, "booking.GetInvoice")
	defer span.End()

	if caller == nil {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Invalid booking id")
	}
	logger := observability.LoggerFrom(ctx, e.logger).WithFields(map[string]interface{}{
		"booking_id": id,
		"user_id":    caller.UserID,
	})

	b, err := e.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "Booking not found")
		}
		return nil, e.transactionFailed(logger, "load booking", err)
	}
	if b.UserID != caller.UserID {
		return nil, domain.Errorf(domain.ErrForbidden, "You can only download your own invoices")
	}

	data := invoice.Data{Booking: b, GeneratedAt: e.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Event, err = e.store.GetEvent(gctx, b.EventID)
		return errors.Wrap(err, "load event")
	})
	g.Go(func() (err error) {
		data.Ticket, err = e.store.GetTicket(gctx, b.TicketID)
		return errors.Wrap(err, "load ticket")
	})
	g.Go(func() error {
		u, err := e.store.GetUser(gctx, b.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			u, err = domain.User{ID: caller.UserID, Email: caller.Email}, nil
		}
		data.User = u
		return errors.Wrap(err, "load user")
	})
	g.Go(func() error {
		p, err := e.store.LatestPayment(gctx, b.ID)
		if err != nil {
			logger.WithError(err).Warn("invoice rendered without payment")
			return nil
		}
		data.Payment = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.transactionFailed(logger, "load invoice data", err)
	}

	pdf, err := e.renderer.Render(data)
	if err != nil {
		return nil, e.transactionFailed(logger, "render invoice", err)
	}
	return &Invoice{BookingID: b.ID, PDF: pdf}, nil
}
