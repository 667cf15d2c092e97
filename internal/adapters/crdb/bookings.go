package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
)

const ticketColumns = `id, event_id, ticket_type, price, quantity, sold_quantity, sale_start_date, sale_end_date, created_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var ticketType string
	err := row.Scan(&t.ID, &t.EventID, &ticketType, &t.Price, &t.Quantity, &t.SoldQuantity,
		&t.SaleStartDate, &t.SaleEndDate, &t.CreatedAt)
	t.TicketType = domain.TicketType(ticketType)
	return t, err
}

// EnsureRegularTicket inserts the event's Regular ticket unless one exists and
// returns the stored row.
func (r *Repository) EnsureRegularTicket(ctx context.Context, e domain.Event) (domain.Ticket, error) {
	t := domain.NewRegularTicket(e, timeNow())
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO tickets (id, event_id, ticket_type, price, quantity, sold_quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (event_id, ticket_type) DO NOTHING
	`, t.ID, t.EventID, string(t.TicketType), t.Price, t.Quantity, t.CreatedAt)
	if err != nil {
		return domain.Ticket{}, errors.Wrap(err, "ensure regular ticket")
	}
	return scanTicket(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE event_id = $1 AND ticket_type = $2`,
		e.ID, string(domain.TicketRegular)))
}

func (r *Repository) AddSoldQuantity(ctx context.Context, ticketID uuid.UUID, qty int) error {
	result, err := r.conn(ctx).Exec(ctx, `UPDATE tickets SET sold_quantity = sold_quantity + $2 WHERE id = $1`, ticketID, qty)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	return nil
}

func (r *Repository) GetTicket(ctx context.Context, id uuid.UUID) (domain.Ticket, error) {
	t, err := scanTicket(r.conn(ctx).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	return t, err
}

func (r *Repository) FindTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1::UUID[])`,
		lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() }))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const bookingColumns = `id, user_id, event_id, ticket_id, quantity, total_amount, booking_status, payment_status, created_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	var bookingStatus, paymentStatus string
	err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.TicketID, &b.Quantity, &b.TotalAmount,
		&bookingStatus, &paymentStatus, &b.CreatedAt)
	b.BookingStatus = domain.BookingStatus(bookingStatus)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, err
}

func (r *Repository) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.UserID, b.EventID, b.TicketID, b.Quantity, b.TotalAmount,
		string(b.BookingStatus), string(b.PaymentStatus), b.CreatedAt)
	return err
}

func (r *Repository) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkBookingPaid(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).Exec(ctx, `UPDATE bookings SET payment_status = $2 WHERE id = $1`, id, string(domain.PaymentPaid))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	return b, err
}

func (r *Repository) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) InsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payments (id, booking_id, payment_method, transaction_id, amount, payment_status, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.BookingID, string(p.PaymentMethod), p.TransactionID, p.Amount, string(p.PaymentStatus), p.PaymentDate)
	return err
}

func (r *Repository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}

func (r *Repository) LatestPayment(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	var method, status string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, booking_id, payment_method, transaction_id, amount, payment_status, payment_date
		FROM payments WHERE booking_id = $1 ORDER BY payment_date DESC LIMIT 1
	`, bookingID).Scan(&p.ID, &p.BookingID, &method, &p.TransactionID, &p.Amount, &status, &p.PaymentDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.PaymentMethod = domain.PaymentMethod(method)
	p.PaymentStatus = domain.PaymentStatus(status)
	p.PaymentDate = p.PaymentDate.UTC()
	return &p, nil
}
