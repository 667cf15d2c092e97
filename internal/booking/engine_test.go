package booking_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/adapters/memory"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/invoice"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	store  *memory.Store
	engine *booking.Engine
	event  domain.Event
}

func newFixture(t *testing.T, seats int, price float64, opts ...booking.Option) *fixture {
	t.Helper()
	s := memory.NewStore()
	ev := domain.Event{
		ID:             uuid.New(),
		Title:          "Sunburn Arena",
		Venue:          "NSCI Dome",
		City:           "Mumbai",
		StartDate:      time.Now().Add(72 * time.Hour).UTC().Truncate(24 * time.Hour),
		EndDate:        time.Now().Add(72 * time.Hour).UTC().Truncate(24 * time.Hour),
		TotalSeats:     seats,
		AvailableSeats: seats,
		IsPaid:         true,
		Price:          price,
		IsApproved:     true,
		Status:         domain.StatusUpcoming,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.CreateEvent(context.Background(), ev))
	renderer := invoice.NewRenderer("EventHub", "Rs.", time.UTC)
	return &fixture{
		store:  s,
		engine: booking.NewEngine(s, renderer, observability.NewNopLogger(), opts...),
		event:  ev,
	}
}

func (f *fixture) reload(t *testing.T) (domain.Event, []domain.Ticket) {
	t.Helper()
	ev, err := f.store.GetEvent(context.Background(), f.event.ID)
	require.NoError(t, err)
	return ev, f.store.TicketsForEvent(f.event.ID)
}

func user() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), Role: domain.RoleUser, Email: "someone@example.com"}
}

func TestCreatePaidBooking_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100)
	u, v := user(), user()

	conf, err := f.engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 4, PaymentMethod: "UPI"})
	require.NoError(t, err)
	assert.Equal(t, 400.0, conf.Booking.TotalAmount)
	assert.Equal(t, domain.PaymentPaid, conf.Booking.PaymentStatus)
	assert.Equal(t, domain.BookingConfirmed, conf.Booking.BookingStatus)
	assert.Equal(t, 400.0, conf.Payment.Amount)
	assert.Equal(t, domain.PaymentSuccess, conf.Payment.PaymentStatus)
	assert.Equal(t, "Sunburn Arena", conf.Booking.Event.Title)
	assert.Equal(t, domain.TicketRegular, conf.Booking.Ticket.TicketType)

	ev, tickets := f.reload(t)
	assert.Equal(t, 6, ev.AvailableSeats)
	require.Len(t, tickets, 1)
	assert.Equal(t, 4, tickets[0].SoldQuantity)

	_, err = f.engine.CreatePaidBooking(ctx, v, booking.Request{EventID: f.event.ID.String(), Quantity: 7, PaymentMethod: "Card"})
	assert.True(t, errors.Is(err, domain.ErrInsufficientCapacity), "got %v", err)
	assert.Equal(t, "Not enough seats available", err.Error())

	ev, tickets = f.reload(t)
	assert.Equal(t, 6, ev.AvailableSeats)
	assert.Equal(t, 4, tickets[0].SoldQuantity)
	mine, err := f.engine.ListMyBookings(ctx, v)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreatePaidBooking_AmountRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 250)
	u := user()

	conf, err := f.engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 3, PaymentMethod: "Wallet"})
	require.NoError(t, err)
	assert.Equal(t, 750.0, conf.Booking.TotalAmount)

	payments := f.store.PaymentsForBooking(conf.Booking.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, 750.0, payments[0].Amount)
	assert.Equal(t, domain.MethodWallet, payments[0].PaymentMethod)
}

func TestCreatePaidBooking_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100)
	id := f.event.ID.String()

	tests := []struct {
		name   string
		caller *auth.Identity
		req    booking.Request
		kind   error
		msg    string
	}{
		{"no caller", nil, booking.Request{EventID: id, Quantity: 1, PaymentMethod: "UPI"}, domain.ErrUnauthenticated, "Not authorized"},
		{"missing event", user(), booking.Request{Quantity: 1, PaymentMethod: "UPI"}, domain.ErrInvalidArgument, "eventId, quantity and paymentMethod are required"},
		{"zero quantity", user(), booking.Request{EventID: id, PaymentMethod: "UPI"}, domain.ErrInvalidArgument, "eventId, quantity and paymentMethod are required"},
		{"missing method", user(), booking.Request{EventID: id, Quantity: 1}, domain.ErrInvalidArgument, "eventId, quantity and paymentMethod are required"},
		{"negative quantity", user(), booking.Request{EventID: id, Quantity: -2, PaymentMethod: "UPI"}, domain.ErrInvalidArgument, "Quantity must be a positive integer"},
		{"unknown method", user(), booking.Request{EventID: id, Quantity: 1, PaymentMethod: "Cash"}, domain.ErrInvalidArgument, ""},
		{"malformed id", user(), booking.Request{EventID: "abc", Quantity: 1, PaymentMethod: "UPI"}, domain.ErrInvalidArgument, "Invalid event id"},
		{"unknown event", user(), booking.Request{EventID: uuid.NewString(), Quantity: 1, PaymentMethod: "UPI"}, domain.ErrNotFound, "Event not found"},
		{"over capacity", user(), booking.Request{EventID: id, Quantity: 11, PaymentMethod: "UPI"}, domain.ErrInsufficientCapacity, "Not enough seats available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreatePaidBooking(ctx, tt.caller, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}

	ev, tickets := f.reload(t)
	assert.Equal(t, 10, ev.AvailableSeats)
	assert.Empty(t, tickets)
}

func TestCreatePaidBooking_EventState(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, 10, 100)
	_, err := f.store.UpdateEvent(ctx, f.event.ID, domain.EventPatch{IsApproved: ptr(false)})
	require.NoError(t, err)
	_, err = f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	assert.True(t, errors.Is(err, domain.ErrUnavailable))

	f = newFixture(t, 10, 100)
	_, err = f.store.UpdateEvent(ctx, f.event.ID, domain.EventPatch{IsDisabled: ptr(true)})
	require.NoError(t, err)
	_, err = f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	assert.True(t, errors.Is(err, domain.ErrUnavailable))

	f = newFixture(t, 10, 0)
	_, err = f.store.UpdateEvent(ctx, f.event.ID, domain.EventPatch{IsPaid: ptr(false)})
	require.NoError(t, err)
	_, err = f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	assert.Equal(t, "Only paid events can be booked", err.Error())

	f = newFixture(t, 10, 0)
	_, err = f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	assert.Equal(t, "Ticket price is invalid for this event", err.Error())
	ev, _ := f.reload(t)
	assert.Equal(t, 10, ev.AvailableSeats)
}

func TestCreatePaidBooking_NoOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 25, 100)

	var (
		wg   sync.WaitGroup
		sold atomic.Int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: qty, PaymentMethod: "UPI"})
			if err == nil {
				sold.Add(int64(qty))
				return
			}
			assert.True(t, errors.Is(err, domain.ErrInsufficientCapacity), "got %v", err)
		}(i%3 + 1)
	}
	wg.Wait()

	ev, tickets := f.reload(t)
	require.Len(t, tickets, 1)
	assert.LessOrEqual(t, sold.Load(), int64(25))
	assert.GreaterOrEqual(t, ev.AvailableSeats, 0)
	assert.LessOrEqual(t, ev.AvailableSeats, ev.TotalSeats)
	assert.Equal(t, int64(25-ev.AvailableSeats), sold.Load())
	assert.Equal(t, int(sold.Load()), tickets[0].SoldQuantity)
}

func TestCreatePaidBooking_ConcurrentFirstBookingsShareTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, tickets := f.reload(t)
	require.Len(t, tickets, 1)
	assert.Equal(t, 2, tickets[0].SoldQuantity)
}

// failingStore breaks one write so the compensation path runs.
type failingStore struct {
	*memory.Store
	failMarkPaid bool
	failSold     bool
}

func (s *failingStore) MarkBookingPaid(ctx context.Context, id uuid.UUID) error {
	if s.failMarkPaid {
		return errors.New("write timeout")
	}
	return s.Store.MarkBookingPaid(ctx, id)
}

func (s *failingStore) AddSoldQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	if s.failSold {
		return errors.New("write timeout")
	}
	return s.Store.AddSoldQuantity(ctx, id, qty)
}

func TestCreatePaidBooking_CompensatesOnFailure(t *testing.T) {
	for _, tc := range []struct {
		name  string
		store func(*memory.Store) *failingStore
	}{
		{"mark paid", func(s *memory.Store) *failingStore { return &failingStore{Store: s, failMarkPaid: true} }},
		{"sold quantity", func(s *memory.Store) *failingStore { return &failingStore{Store: s, failSold: true} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, 10, 100)
			engine := booking.NewEngine(tc.store(f.store), invoice.NewRenderer("EventHub", "Rs.", time.UTC), observability.NewNopLogger(), booking.WithOutbox(f.store))
			u := user()

			_, err := engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 3, PaymentMethod: "UPI"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrTransactionFailed), "got %v", err)
			assert.Equal(t, "Server error", err.Error())

			ev, tickets := f.reload(t)
			assert.Equal(t, 10, ev.AvailableSeats)
			require.Len(t, tickets, 1)
			assert.Zero(t, tickets[0].SoldQuantity)

			mine, err := f.engine.ListMyBookings(ctx, u)
			require.NoError(t, err)
			assert.Empty(t, mine)
			assert.Empty(t, f.store.Outbox())
		})
	}
}

// userlessStore cannot load users.
type userlessStore struct {
	*memory.Store
}

func (s *userlessStore) GetUser(context.Context, uuid.UUID) (domain.User, error) {
	return domain.User{}, errors.New("users collection unavailable")
}

func TestCreatePaidBooking_UserLookupFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100)
	log, hook := logtest.NewNullLogger()
	engine := booking.NewEngine(&userlessStore{Store: f.store}, invoice.NewRenderer("EventHub", "Rs.", time.UTC), observability.WrapLogrus(log))
	u := user()

	conf, err := engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	require.NoError(t, err)
	assert.Equal(t, u.Email, conf.Booking.User.Email)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "booking confirmed without user details" {
			warned = true
			assert.Equal(t, f.event.ID, entry.Data["event_id"])
		}
	}
	assert.True(t, warned)
}

// passThroughTx runs fn directly and counts calls.
type passThroughTx struct {
	calls atomic.Int32
}

func (p *passThroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls.Add(1)
	return fn(ctx)
}

func TestCreatePaidBooking_Transactional(t *testing.T) {
	ctx := context.Background()
	tx := &passThroughTx{}
	f := newFixture(t, 10, 100, booking.WithTransactor(tx))

	conf, err := f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 2, PaymentMethod: "NetBanking"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tx.calls.Load())
	assert.Equal(t, 200.0, conf.Payment.Amount)
}

func TestCreatePaidBooking_WritesOutbox(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	f := newFixture(t, 10, 100)
	engine := booking.NewEngine(f.store, nil, observability.NewNopLogger(), booking.WithOutbox(s))

	conf, err := engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	require.NoError(t, err)

	recs := s.Outbox()
	require.Len(t, recs, 1)
	assert.Equal(t, booking.EventBookingConfirmed, recs[0].EventType)
	assert.Equal(t, conf.Booking.ID, recs[0].AggregateID)
	assert.Equal(t, conf.Payment.TransactionID, recs[0].DedupeKey)
	assert.Contains(t, string(recs[0].Payload), conf.Booking.ID.String())
}

func TestListMyBookings(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Minute) }
	f := newFixture(t, 10, 100, booking.WithClock(clock))
	u := user()

	first, err := f.engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	require.NoError(t, err)
	second, err := f.engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 2, PaymentMethod: "UPI"})
	require.NoError(t, err)
	_, err = f.engine.CreatePaidBooking(ctx, user(), booking.Request{EventID: f.event.ID.String(), Quantity: 1, PaymentMethod: "UPI"})
	require.NoError(t, err)

	mine, err := f.engine.ListMyBookings(ctx, u)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.Booking.ID, mine[0].ID)
	assert.Equal(t, first.Booking.ID, mine[1].ID)
	require.NotNil(t, mine[0].Event)
	assert.Equal(t, "NSCI Dome", mine[0].Event.Venue)
	assert.Equal(t, domain.StatusUpcoming, mine[0].Event.Status)
	require.NotNil(t, mine[0].Ticket)
	assert.Equal(t, 100.0, mine[0].Ticket.Price)

	_, err = f.engine.ListMyBookings(ctx, nil)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestGetInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100)
	u := user()
	require.NoError(t, f.store.UpsertUser(ctx, domain.User{ID: u.UserID, Name: "Owner", Email: u.Email}))

	conf, err := f.engine.CreatePaidBooking(ctx, u, booking.Request{EventID: f.event.ID.String(), Quantity: 2, PaymentMethod: "Card"})
	require.NoError(t, err)
	assert.Equal(t, "Owner", conf.Booking.User.Name)

	inv, err := f.engine.GetInvoice(ctx, u, conf.Booking.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(inv.PDF[:5]))
	assert.Equal(t, "invoice-"+conf.Booking.ID.String()+".pdf", inv.Filename())

	inv, err = f.engine.GetInvoice(ctx, u, "urn:uuid:"+strings.ToUpper(conf.Booking.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, conf.Booking.ID, inv.BookingID)

	_, err = f.engine.GetInvoice(ctx, user(), conf.Booking.ID.String())
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Equal(t, "You can only download your own invoices", err.Error())

	_, err = f.engine.GetInvoice(ctx, u, uuid.NewString())
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.engine.GetInvoice(ctx, u, "not-a-uuid")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = f.engine.GetInvoice(ctx, nil, conf.Booking.ID.String())
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func ptr[T any](v T) *T { return &v }
