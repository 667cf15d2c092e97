package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
)

func (s *Store) EnsureRegularTicket(_ context.Context, e domain.Event) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := lo.Find(lo.Values(s.tickets), func(t domain.Ticket) bool {
		return t.EventID == e.ID && t.TicketType == domain.TicketRegular
	}); ok {
		return t, nil
	}
	t := domain.NewRegularTicket(e, time.Now().UTC())
	s.tickets[t.ID] = t
	return t, nil
}

func (s *Store) AddSoldQuantity(_ context.Context, ticketID uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	t.SoldQuantity += qty
	s.tickets[ticketID] = t
	return nil
}

func (s *Store) GetTicket(_ context.Context, id uuid.UUID) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	return t, nil
}

func (s *Store) FindTickets(_ context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := s.tickets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// TicketsForEvent lists every ticket of an event.
func (s *Store) TicketsForEvent(eventID uuid.UUID) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(lo.Values(s.tickets), func(t domain.Ticket, _ int) bool { return t.EventID == eventID })
}

func (s *Store) InsertBooking(_ context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) DeleteBooking(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
	return nil
}

func (s *Store) MarkBookingPaid(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	b.PaymentStatus = domain.PaymentPaid
	s.bookings[id] = b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	return b, nil
}

func (s *Store) ListBookingsByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Filter(lo.Values(s.bookings), func(b domain.Booking, _ int) bool { return b.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertPayment(_ context.Context, p domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payments, id)
	return nil
}

func (s *Store) LatestPayment(_ context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Payment
	for _, p := range s.payments {
		if p.BookingID != bookingID {
			continue
		}
		if latest == nil || p.PaymentDate.After(latest.PaymentDate) {
			p := p
			latest = &p
		}
	}
	return latest, nil
}

// PaymentsForBooking lists every payment recorded against a booking.
func (s *Store) PaymentsForBooking(bookingID uuid.UUID) []domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(lo.Values(s.payments), func(p domain.Payment, _ int) bool { return p.BookingID == bookingID })
}

func (s *Store) InsertOutbox(_ context.Context, rec domain.OutboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, rec)
	return nil
}

func (s *Store) Outbox() []domain.OutboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxRecord(nil), s.outbox...)
}

func (s *Store) GetUnpublishedOutbox(_ context.Context, limit int) ([]domain.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := lo.Filter(s.outbox, func(r domain.OutboxRecord, _ int) bool { return r.Status == "NEW" })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkPublished(_ context.Context, id uuid.UUID, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			at := publishedAt
			s.outbox[i].Status = "PUBLISHED"
			s.outbox[i].PublishedAt = &at
			return nil
		}
	}
	return domain.Errorf(domain.ErrNotFound, "Outbox record not found")
}
