// Package memory is an in-process store used for local development and tests.
// Every method holds one mutex, so each call is atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
)

type Store struct {
	mu         sync.Mutex
	events     map[uuid.UUID]domain.Event
	categories map[uuid.UUID]domain.Category
	tickets    map[uuid.UUID]domain.Ticket
	bookings   map[uuid.UUID]domain.Booking
	payments   map[uuid.UUID]domain.Payment
	users      map[uuid.UUID]domain.User
	outbox     []domain.OutboxRecord
}

func NewStore() *Store {
	return &Store{
		events:     make(map[uuid.UUID]domain.Event),
		categories: make(map[uuid.UUID]domain.Category),
		tickets:    make(map[uuid.UUID]domain.Ticket),
		bookings:   make(map[uuid.UUID]domain.Booking),
		payments:   make(map[uuid.UUID]domain.Payment),
		users:      make(map[uuid.UUID]domain.User),
	}
}

func errEventNotFound() error { return domain.Errorf(domain.ErrNotFound, "Event not found") }

func errSeatsChanged() error {
	return domain.Errorf(domain.ErrConflict, "Seat count was changed by another update, please retry")
}

func (s *Store) CreateEvent(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return domain.Errorf(domain.ErrConflict, "Event already exists")
	}
	s.events[e.ID] = e
	return nil
}

func (s *Store) GetEvent(_ context.Context, id uuid.UUID) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, errEventNotFound()
	}
	return e, nil
}

func (s *Store) FindEvents(_ context.Context, q domain.EventQuery) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := lo.Filter(lo.Values(s.events), func(e domain.Event, _ int) bool {
		if len(q.IDs) > 0 && !lo.Contains(q.IDs, e.ID) {
			return false
		}
		if q.OnlyListed && !e.Bookable() {
			return false
		}
		if q.CategoryID != nil && e.CategoryID != *q.CategoryID {
			return false
		}
		if q.OrganizerID != nil && e.OrganizerID != *q.OrganizerID {
			return false
		}
		if q.City != "" && !strings.EqualFold(e.City, q.City) {
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *Store) UpdateEvent(_ context.Context, id uuid.UUID, p domain.EventPatch) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, errEventNotFound()
	}
	if p.SeatDelta != 0 && e.TotalSeats != p.SeatsFrom {
		return domain.Event{}, errSeatsChanged()
	}
	if e.AvailableSeats+p.SeatDelta < 0 {
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Cannot reduce seats below the number already booked")
	}
	applyPatch(&e, p)
	e.UpdatedAt = time.Now().UTC()
	s.events[id] = e
	return e, nil
}

func applyPatch(e *domain.Event, p domain.EventPatch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&e.Title, p.Title)
	set(&e.Description, p.Description)
	set(&e.Venue, p.Venue)
	set(&e.City, p.City)
	set(&e.StartTime, p.StartTime)
	set(&e.EndTime, p.EndTime)
	set(&e.BannerImageURL, p.BannerImageURL)
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.IsPaid != nil {
		e.IsPaid = *p.IsPaid
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.IsApproved != nil {
		e.IsApproved = *p.IsApproved
	}
	if p.IsDisabled != nil {
		e.IsDisabled = *p.IsDisabled
	}
	e.TotalSeats += p.SeatDelta
	e.AvailableSeats += p.SeatDelta
}

func (s *Store) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return errEventNotFound()
	}
	delete(s.events, id)
	return nil
}

func (s *Store) ReserveSeats(_ context.Context, eventID uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	switch {
	case !ok:
		return errEventNotFound()
	case !e.Bookable():
		return domain.Errorf(domain.ErrUnavailable, "Event is not available for booking")
	case e.AvailableSeats < qty:
		return domain.Errorf(domain.ErrInsufficientCapacity, "Not enough seats available")
	}
	e.AvailableSeats -= qty
	s.events[eventID] = e
	return nil
}

func (s *Store) ReleaseSeats(_ context.Context, eventID uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return errEventNotFound()
	}
	e.AvailableSeats = min(e.AvailableSeats+qty, e.TotalSeats)
	s.events[eventID] = e
	return nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.Errorf(domain.ErrNotFound, "Category not found")
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Filter(lo.Values(s.categories), func(c domain.Category, _ int) bool { return c.IsActive })
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SeedCategories inserts categories by name, keeping existing ones untouched.
func (s *Store) SeedCategories(_ context.Context, cats []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cats {
		exists := lo.ContainsBy(lo.Values(s.categories), func(have domain.Category) bool { return have.Name == c.Name })
		if !exists {
			s.categories[c.ID] = c
		}
	}
	return nil
}

func (s *Store) UpsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return u, nil
}
