// Package catalog holds event records, the admin moderation workflow and the
// listing views, all of which report the effective event status.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
)

type Store interface {
	CreateEvent(ctx context.Context, e domain.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error)
	FindEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)
	// UpdateEvent applies p in a single atomic write and returns the result.
	// A seat edit only applies while totalSeats still equals p.SeatsFrom,
	// otherwise it fails with ErrConflict. A negative SeatDelta that would
	// push availableSeats below zero fails with ErrInvalidArgument.
	UpdateEvent(ctx context.Context, id uuid.UUID, p domain.EventPatch) (domain.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetCategory(ctx context.Context, id uuid.UUID) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// ListingCache stores the approved, enabled candidate set of the public
// listing. Any write to the catalog invalidates it.
//
// On a miss GetEvents returns the slot the caller fills with SetEvents. A slot
// belongs to the generation it was resolved in, so a fill that races an
// Invalidate is never read. An empty slot means the entry must not be stored.
type ListingCache interface {
	GetEvents(ctx context.Context, key string) (events []domain.Event, slot string, ok bool)
	SetEvents(ctx context.Context, slot string, events []domain.Event)
	Invalidate(ctx context.Context)
}

// Uploader copies a local file into object storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) (string, error)
}

const BannerFolder = "eventhub/events"

type Filter struct {
	Statuses   []domain.EventStatus
	CategoryID *uuid.UUID
	City       string
}

type EventInput struct {
	Title       string
	Description string
	CategoryID  uuid.UUID
	Venue       string
	City        string
	StartDate   time.Time
	StartTime   string
	EndDate     time.Time
	EndTime     string
	TotalSeats  int
	IsPaid      bool
	Price       float64
	// BannerPath is a local file to upload, if any.
	BannerPath string
}

type EventChanges struct {
	Title       *string
	Description *string
	CategoryID  *uuid.UUID
	Venue       *string
	City        *string
	StartDate   *time.Time
	StartTime   *string
	EndDate     *time.Time
	EndTime     *string
	TotalSeats  *int
	IsPaid      *bool
	Price       *float64
	Status      *domain.EventStatus
	BannerPath  string
}
