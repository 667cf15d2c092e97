package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
)

func NewBooking(userID, eventID, ticketID uuid.UUID, qty int, amount float64, now time.Time) Booking {
	return Booking{
		ID:            uuid.New(),
		UserID:        userID,
		EventID:       eventID,
		TicketID:      ticketID,
		Quantity:      qty,
		TotalAmount:   amount,
		BookingStatus: BookingConfirmed,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
	}
}

// NewPayment records a captured payment for b. The amount always mirrors the booking total.
func NewPayment(b Booking, method PaymentMethod, now time.Time) Payment {
	return Payment{
		ID:            uuid.New(),
		BookingID:     b.ID,
		PaymentMethod: method,
		TransactionID: NewTransactionID(now),
		Amount:        b.TotalAmount,
		PaymentStatus: PaymentSuccess,
		PaymentDate:   now,
	}
}

func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), shortuuid.New())
}

func NewRegularTicket(e Event, now time.Time) Ticket {
	return Ticket{
		ID:         uuid.New(),
		EventID:    e.ID,
		TicketType: TicketRegular,
		Price:      e.Price,
		Quantity:   e.TotalSeats,
		CreatedAt:  now,
	}
}
