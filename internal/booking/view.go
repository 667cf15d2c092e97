package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
)

type EventSummary struct {
	ID             uuid.UUID          `json:"id"`
	Title          string             `json:"title"`
	Venue          string             `json:"venue"`
	City           string             `json:"city"`
	StartDate      time.Time          `json:"startDate"`
	StartTime      string             `json:"startTime"`
	BannerImageURL string             `json:"bannerImage"`
	Price          float64            `json:"price"`
	Status         domain.EventStatus `json:"status"`
}

type TicketSummary struct {
	ID         uuid.UUID         `json:"id"`
	TicketType domain.TicketType `json:"ticketType"`
	Price      float64           `json:"price"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// View is a booking joined with the summaries shown to its owner.
type View struct {
	ID            uuid.UUID            `json:"id"`
	Quantity      int                  `json:"quantity"`
	TotalAmount   float64              `json:"totalAmount"`
	BookingStatus domain.BookingStatus `json:"bookingStatus"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time            `json:"createdAt"`
	Event         *EventSummary        `json:"event"`
	Ticket        *TicketSummary       `json:"ticket"`
	User          *UserSummary         `json:"user,omitempty"`
}

type Confirmation struct {
	Booking View           `json:"booking"`
	Payment domain.Payment `json:"payment"`
}

func newView(b domain.Booking) View {
	return View{
		ID:            b.ID,
		Quantity:      b.Quantity,
		TotalAmount:   b.TotalAmount,
		BookingStatus: b.BookingStatus,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
	}
}

func summarizeEvent(e domain.Event, status domain.EventStatus) *EventSummary {
	return &EventSummary{
		ID:             e.ID,
		Title:          e.Title,
		Venue:          e.Venue,
		City:           e.City,
		StartDate:      e.StartDate,
		StartTime:      e.StartTime,
		BannerImageURL: e.BannerImageURL,
		Price:          e.Price,
		Status:         status,
	}
}

func summarizeTicket(t domain.Ticket) *TicketSummary {
	return &TicketSummary{ID: t.ID, TicketType: t.TicketType, Price: t.Price}
}

func summarizeUser(u domain.User) *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
