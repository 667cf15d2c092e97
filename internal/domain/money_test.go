package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 750.0, domain.LineTotal(250, 3))
	assert.Equal(t, 0.3, domain.LineTotal(0.1, 3))
	assert.Equal(t, 59.97, domain.LineTotal(19.99, 3))
}

func TestNormalizePrice(t *testing.T) {
	p, err := domain.NormalizePrice(false, 120)
	require.NoError(t, err)
	assert.Zero(t, p)

	p, err = domain.NormalizePrice(true, 99.999)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p)

	_, err = domain.NormalizePrice(true, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	_, err = domain.NormalizePrice(true, -5)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "Rs.750.00", domain.FormatAmount("Rs.", 750))
	assert.Equal(t, "$0.50", domain.FormatAmount("$", 0.5))
}

func TestNewPayment_MirrorsBooking(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b := domain.NewBooking(domain.Event{}.ID, domain.Event{}.ID, domain.Ticket{}.ID, 3, 750, now)
	p := domain.NewPayment(b, domain.MethodUPI, now)

	assert.Equal(t, b.ID, p.BookingID)
	assert.Equal(t, 750.0, p.Amount)
	assert.Equal(t, domain.PaymentSuccess, p.PaymentStatus)
	assert.True(t, strings.HasPrefix(p.TransactionID, "TXN-1735787045000-"))
	assert.NotEqual(t, p.TransactionID, domain.NewPayment(b, domain.MethodUPI, now).TransactionID)
}

func TestErrorf_Kind(t *testing.T) {
	err := domain.Errorf(domain.ErrNotFound, "Event not found")
	assert.Equal(t, "Event not found", err.Error())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.ErrNotFound, domain.KindOf(errors.Wrap(err, "load event")))
	assert.Nil(t, domain.KindOf(errors.New("boom")))
}
