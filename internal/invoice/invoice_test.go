package invoice_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/invoice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() invoice.Data {
	generated := time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC)
	b := domain.Booking{
		ID:            uuid.MustParse("6f1c1f40-8d1e-4c52-9a43-0d0c7a3a1b11"),
		UserID:        uuid.New(),
		Quantity:      3,
		TotalAmount:   750,
		BookingStatus: domain.BookingConfirmed,
		PaymentStatus: domain.PaymentPaid,
		CreatedAt:     generated,
	}
	return invoice.Data{
		Booking: b,
		Event: domain.Event{
			Title:     "Indie Night (Live)",
			Venue:     "Blue Frog",
			City:      "Mumbai",
			StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			StartTime: "19:00",
			EndDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Ticket: domain.Ticket{TicketType: domain.TicketRegular, Price: 250},
		User:   domain.User{Name: "Asha Rao", Email: "asha@example.com"},
		Payment: &domain.Payment{
			PaymentMethod: domain.MethodUPI,
			TransactionID: "TXN-1739525400000-abc",
			Amount:        750,
			PaymentStatus: domain.PaymentSuccess,
			PaymentDate:   generated,
		},
		GeneratedAt: generated,
	}
}

func TestRender_Deterministic(t *testing.T) {
	r := invoice.NewRenderer("EventHub", "Rs.", time.UTC)

	first, err := r.Render(sampleData())
	require.NoError(t, err)
	second, err := r.Render(sampleData())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))
	assert.True(t, bytes.Equal(first, second))
}

func TestRender_Layout(t *testing.T) {
	r := invoice.NewRenderer("EventHub", "Rs.", time.UTC).WithoutCompression()

	out, err := r.Render(sampleData())
	require.NoError(t, err)

	for _, want := range []string{
		"EventHub",
		"INVOICE",
		"Billed To",
		"Asha Rao",
		"Invoice #: 6f1c1f40-8d1e-4c52-9a43-0d0c7a3a1b11",
		"Blue Frog, Mumbai",
		"Start: 01 Mar 2025, 19:00",
		"End: 01 Mar 2025, 23:59",
		"Ticket - Regular",
		"Rs.250.00",
		"Rs.750.00",
		"Method: UPI",
		"Transaction: TXN-1739525400000-abc",
		"Thank you for your purchase!",
	} {
		assert.Contains(t, string(out), want)
	}
}

func TestRender_WithoutPayment(t *testing.T) {
	r := invoice.NewRenderer("EventHub", "Rs.", time.UTC).WithoutCompression()
	d := sampleData()
	d.Payment = nil

	out, err := r.Render(d)
	require.NoError(t, err)

	assert.Contains(t, string(out), "Status: paid")
	assert.NotContains(t, string(out), "Transaction:")
	assert.NotContains(t, string(out), "Method:")
}
