// Package booking runs the paid booking transaction and the owner views of
// its results.
package booking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const EventBookingConfirmed = "booking.confirmed"

type Request struct {
	EventID       string
	Quantity      int
	PaymentMethod string
}

type Engine struct {
	store    Store
	tx       Transactor
	outbox   Outbox
	renderer Renderer
	loc      *time.Location
	logger   observability.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Engine)

// WithTransactor makes the engine run the booking writes in one store
// transaction instead of compensating on failure.
func WithTransactor(tx Transactor) Option {
	return func(e *Engine) { e.tx = tx }
}

func WithOutbox(o Outbox) Option {
	return func(e *Engine) { e.outbox = o }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, renderer Renderer, logger observability.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		renderer: renderer,
		loc:      time.UTC,
		logger:   logger,
		tracer:   otel.Tracer("booking"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreatePaidBooking validates the request, then reserves seats, records the
// booking and its payment, and bumps the ticket sales counter as one unit.
func (e *Engine) CreatePaidBooking(ctx context.Context, caller *auth.Identity, req Request) (*Confirmation, error) {
	ctx, span := e.tracer.Start(ctx, "booking.CreatePaidBooking")
	defer span.End()

	start := time.Now()
	conf, err := e.createPaidBooking(ctx, caller, req)
	observability.BookingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := domain.KindOf(err)
		outcome := "failed"
		if kind != nil && kind != domain.ErrTransactionFailed {
			outcome = "rejected"
		}
		observability.BookingsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	observability.BookingsTotal.WithLabelValues("confirmed").Inc()
	observability.SeatsSold.Add(float64(conf.Booking.Quantity))
	span.SetAttributes(
		attribute.String("booking.id", conf.Booking.ID.String()),
		attribute.Int("booking.quantity", conf.Booking.Quantity),
	)
	return conf, nil
}

func (e *Engine) createPaidBooking(ctx context.Context, caller *auth.Identity, req Request) (*Confirmation, error) {
	if caller == nil {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	req.EventID = strings.TrimSpace(req.EventID)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.EventID == "" || req.Quantity == 0 || req.PaymentMethod == "" {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "eventId, quantity and paymentMethod are required")
	}
	if req.Quantity < 0 {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Quantity must be a positive integer")
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Payment method must be one of UPI, Card, NetBanking, Wallet")
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Invalid event id")
	}

	logger := observability.LoggerFrom(ctx, e.logger).WithFields(map[string]interface{}{
		"event_id": eventID,
		"user_id":  caller.UserID,
		"quantity": req.Quantity,
	})

	ev, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "Event not found")
		}
		return nil, e.transactionFailed(logger, "load event", err)
	}
	if !ev.Bookable() {
		return nil, domain.Errorf(domain.ErrUnavailable, "Event is not available for booking")
	}
	if !ev.IsPaid {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Only paid events can be booked")
	}
	if ev.AvailableSeats < req.Quantity {
		return nil, domain.Errorf(domain.ErrInsufficientCapacity, "Not enough seats available")
	}

	var res *commitResult
	if e.tx != nil {
		err = e.tx.WithTx(ctx, func(txCtx context.Context) error {
			r, err := e.commit(txCtx, &saga{}, ev, caller.UserID, req.Quantity, method)
			if err != nil {
				return err
			}
			if err := e.writeOutbox(txCtx, r); err != nil {
				return errors.Wrap(err, "write outbox")
			}
			res = r
			return nil
		})
	} else {
		sg := &saga{enabled: true, logger: logger}
		res, err = e.commit(ctx, sg, ev, caller.UserID, req.Quantity, method)
		if err != nil {
			sg.compensate(ctx)
		} else if oerr := e.writeOutbox(ctx, res); oerr != nil {
			observability.OutboxFailures.Inc()
			logger.WithError(oerr).Warn("booking confirmed but outbox write failed")
		}
	}
	if err != nil {
		if isRejection(err) {
			return nil, err
		}
		return nil, e.transactionFailed(logger, "commit booking", err)
	}

	logger.WithField("booking_id", res.booking.ID).Info("booking confirmed")
	return e.confirmation(ctx, logger, caller, res), nil
}

type commitResult struct {
	event   domain.Event
	ticket  domain.Ticket
	booking domain.Booking
	payment domain.Payment
}

func (e *Engine) commit(ctx context.Context, sg *saga, ev domain.Event, userID uuid.UUID, qty int, method domain.PaymentMethod) (*commitResult, error) {
	ticket, err := e.store.EnsureRegularTicket(ctx, ev)
	if err != nil {
		return nil, errors.Wrap(err, "resolve ticket")
	}
	if ticket.Price <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidArgument, "Ticket price is invalid for this event")
	}
	amount := domain.LineTotal(ticket.Price, qty)

	if err := e.store.ReserveSeats(ctx, ev.ID, qty); err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			return nil, domain.Errorf(domain.ErrInsufficientCapacity, "Not enough seats available")
		}
		if errors.Is(err, domain.ErrUnavailable) {
			return nil, domain.Errorf(domain.ErrUnavailable, "Event is not available for booking")
		}
		return nil, errors.Wrap(err, "reserve seats")
	}
	sg.done("release_seats", func(ctx context.Context) error {
		return e.store.ReleaseSeats(ctx, ev.ID, qty)
	})

	now := e.now().UTC()
	b := domain.NewBooking(userID, ev.ID, ticket.ID, qty, amount, now)
	if err := e.store.InsertBooking(ctx, b); err != nil {
		return nil, errors.Wrap(err, "insert booking")
	}
	sg.done("delete_booking", func(ctx context.Context) error {
		return e.store.DeleteBooking(ctx, b.ID)
	})

	p := domain.NewPayment(b, method, now)
	if err := e.store.InsertPayment(ctx, p); err != nil {
		return nil, errors.Wrap(err, "insert payment")
	}
	sg.done("delete_payment", func(ctx context.Context) error {
		return e.store.DeletePayment(ctx, p.ID)
	})

	if err := e.store.MarkBookingPaid(ctx, b.ID); err != nil {
		return nil, errors.Wrap(err, "mark booking paid")
	}
	b.PaymentStatus = domain.PaymentPaid

	if err := e.store.AddSoldQuantity(ctx, ticket.ID, qty); err != nil {
		return nil, errors.Wrap(err, "add sold quantity")
	}
	ticket.SoldQuantity += qty
	ev.AvailableSeats -= qty

	return &commitResult{event: ev, ticket: ticket, booking: b, payment: p}, nil
}

func (e *Engine) writeOutbox(ctx context.Context, r *commitResult) error {
	if e.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"booking_id":     r.booking.ID,
		"user_id":        r.booking.UserID,
		"event_id":       r.booking.EventID,
		"ticket_id":      r.booking.TicketID,
		"quantity":       r.booking.Quantity,
		"total_amount":   r.booking.TotalAmount,
		"transaction_id": r.payment.TransactionID,
		"payment_method": r.payment.PaymentMethod,
	})
	if err != nil {
		return err
	}
	return e.outbox.InsertOutbox(ctx, domain.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   r.booking.ID,
		EventType:     EventBookingConfirmed,
		Payload:       payload,
		CreatedAt:     e.now().UTC(),
		Status:        "NEW",
		DedupeKey:     r.payment.TransactionID,
	})
}

func (e *Engine) confirmation(ctx context.Context, logger observability.Logger, caller *auth.Identity, r *commitResult) *Confirmation {
	v := newView(r.booking)
	v.Event = summarizeEvent(r.event, domain.EffectiveStatus(r.event, e.now(), e.loc))
	v.Ticket = summarizeTicket(r.ticket)

	u, err := e.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithError(err).Warn("booking confirmed without user details")
		}
		u = domain.User{ID: caller.UserID, Email: caller.Email}
	}
	v.User = summarizeUser(u)

	return &Confirmation{Booking: v, Payment: r.payment}
}

func (e *Engine) transactionFailed(logger observability.Logger, step string, err error) error {
	logger.WithError(err).WithField("step", step).Error("booking transaction failed")
	return errors.WithSecondaryError(domain.Errorf(domain.ErrTransactionFailed, "Server error"), err)
}

// isRejection reports whether err is a business rule failure that should be
// returned to the caller as is.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrInsufficientCapacity) ||
		errors.Is(err, domain.ErrUnavailable) ||
		errors.Is(err, domain.ErrNotFound)
}
