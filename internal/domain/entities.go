package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type TicketType string

const (
	TicketFree    TicketType = "Free"
	TicketRegular TicketType = "Regular"
	TicketVIP     TicketType = "VIP"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "UPI"
	MethodCard       PaymentMethod = "Card"
	MethodNetBanking PaymentMethod = "NetBanking"
	MethodWallet     PaymentMethod = "Wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetBanking, MethodWallet:
		return true
	}
	return false
}

// Event dates are calendar days stored as UTC midnight; StartTime and EndTime
// are wall clock strings ("HH:MM" or "HH:MM:SS") and may be empty.
type Event struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	CategoryID     uuid.UUID   `json:"categoryId"`
	OrganizerID    uuid.UUID   `json:"organizerId"`
	Venue          string      `json:"venue"`
	City           string      `json:"city"`
	StartDate      time.Time   `json:"startDate"`
	StartTime      string      `json:"startTime"`
	EndDate        time.Time   `json:"endDate"`
	EndTime        string      `json:"endTime"`
	TotalSeats     int         `json:"totalSeats"`
	AvailableSeats int         `json:"availableSeats"`
	IsPaid         bool        `json:"isPaid"`
	Price          float64     `json:"price"`
	BannerImageURL string      `json:"bannerImage"`
	IsApproved     bool        `json:"isApproved"`
	IsDisabled     bool        `json:"isDisabled"`
	Status         EventStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (e Event) Bookable() bool {
	return e.IsApproved && !e.IsDisabled
}

// EventPatch carries the fields to overwrite on an event. Nil fields are left
// untouched; SeatDelta is added to both TotalSeats and AvailableSeats.
type EventPatch struct {
	Title          *string
	Description    *string
	CategoryID     *uuid.UUID
	Venue          *string
	City           *string
	StartDate      *time.Time
	StartTime      *string
	EndDate        *time.Time
	EndTime        *string
	IsPaid         *bool
	Price          *float64
	BannerImageURL *string
	Status         *EventStatus
	IsApproved     *bool
	IsDisabled     *bool
	SeatDelta      int
	// SeatsFrom is the totalSeats SeatDelta was computed from. When the stored
	// value differs the write fails with ErrConflict.
	SeatsFrom int
}

func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

type EventQuery struct {
	IDs         []uuid.UUID
	OnlyListed  bool
	CategoryID  *uuid.UUID
	OrganizerID *uuid.UUID
	City        string
	NewestFirst bool
}

type Ticket struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"eventId"`
	TicketType    TicketType `json:"ticketType"`
	Price         float64    `json:"price"`
	Quantity      int        `json:"quantity"`
	SoldQuantity  int        `json:"soldQuantity"`
	SaleStartDate *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time `json:"saleEndDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type Booking struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"userId"`
	EventID       uuid.UUID     `json:"eventId"`
	TicketID      uuid.UUID     `json:"ticketId"`
	Quantity      int           `json:"quantity"`
	TotalAmount   float64       `json:"totalAmount"`
	BookingStatus BookingStatus `json:"bookingStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type Payment struct {
	ID            uuid.UUID     `json:"id"`
	BookingID     uuid.UUID     `json:"bookingId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	TransactionID string        `json:"transactionId"`
	Amount        float64       `json:"amount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentDate   time.Time     `json:"paymentDate"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsBlocked bool      `json:"isBlocked"`
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
}

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED
	DedupeKey     string
}
