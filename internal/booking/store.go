package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/invoice"
)

// Store is the persistence the engine needs. ReserveSeats must be a single
// conditional update: decrement availableSeats by qty only while
// availableSeats >= qty and the event is approved and enabled.
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
	FindEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)
	ReserveSeats(ctx context.Context, eventID uuid.UUID, qty int) error
	ReleaseSeats(ctx context.Context, eventID uuid.UUID, qty int) error

	// EnsureRegularTicket is an upsert keyed on (eventId, Regular).
	EnsureRegularTicket(ctx context.Context, e domain.Event) (domain.Ticket, error)
	AddSoldQuantity(ctx context.Context, ticketID uuid.UUID, qty int) error
	GetTicket(ctx context.Context, id uuid.UUID) (domain.Ticket, error)
	FindTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error)

	InsertBooking(ctx context.Context, b domain.Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error
	MarkBookingPaid(ctx context.Context, id uuid.UUID) error
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	// ListBookingsByUser returns newest first.
	ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)

	InsertPayment(ctx context.Context, p domain.Payment) error
	DeletePayment(ctx context.Context, id uuid.UUID) error
	// LatestPayment returns nil without error when the booking has no payment.
	LatestPayment(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error)

	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// Transactor runs fn inside a multi-record transaction. Stores carry the
// transaction in the context handed to fn.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Outbox interface {
	InsertOutbox(ctx context.Context, rec domain.OutboxRecord) error
}

type Renderer interface {
	Render(d invoice.Data) ([]byte, error)
}
