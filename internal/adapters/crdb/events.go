package crdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
)

const eventColumns = `id, title, description, category_id, organizer_id, venue, city,
	start_date, start_time, end_date, end_time, total_seats, available_seats,
	is_paid, price, banner_image, is_approved, is_disabled, status, created_at, updated_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	var status string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.CategoryID, &e.OrganizerID, &e.Venue, &e.City,
		&e.StartDate, &e.StartTime, &e.EndDate, &e.EndTime, &e.TotalSeats, &e.AvailableSeats,
		&e.IsPaid, &e.Price, &e.BannerImageURL, &e.IsApproved, &e.IsDisabled, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	e.StartDate = e.StartDate.UTC()
	e.EndDate = e.EndDate.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func errEventNotFound() error { return domain.Errorf(domain.ErrNotFound, "Event not found") }

func (r *Repository) CreateEvent(ctx context.Context, e domain.Event) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, e.ID, e.Title, e.Description, e.CategoryID, e.OrganizerID, e.Venue, e.City,
		e.StartDate, e.StartTime, e.EndDate, e.EndTime, e.TotalSeats, e.AvailableSeats,
		e.IsPaid, e.Price, e.BannerImageURL, e.IsApproved, e.IsDisabled, string(e.Status), e.CreatedAt, e.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Errorf(domain.ErrConflict, "Event already exists")
	}
	return err
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, errEventNotFound()
	}
	return e, err
}

func (r *Repository) FindEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.IDs) > 0 {
		ids := lo.Map(q.IDs, func(id uuid.UUID, _ int) string { return id.String() })
		where = append(where, "id = ANY("+arg(ids)+"::UUID[])")
	}
	if q.OnlyListed {
		where = append(where, "is_approved AND NOT is_disabled")
	}
	if q.CategoryID != nil {
		where = append(where, "category_id = "+arg(*q.CategoryID))
	}
	if q.OrganizerID != nil {
		where = append(where, "organizer_id = "+arg(*q.OrganizerID))
	}
	if q.City != "" {
		where = append(where, "lower(city) = lower("+arg(q.City)+")")
	}

	sql := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	if q.NewestFirst {
		sql += " ORDER BY created_at DESC"
	} else {
		sql += " ORDER BY start_date ASC"
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEvent applies p in one statement. The available_seats guard makes a
// seat reduction below the booked count match no row.
func (r *Repository) UpdateEvent(ctx context.Context, id uuid.UUID, p domain.EventPatch) (domain.Event, error) {
	var status *string
	if p.Status != nil {
		status = lo.ToPtr(string(*p.Status))
	}
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx, `
		UPDATE events SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			category_id = COALESCE($4, category_id),
			venue = COALESCE($5, venue),
			city = COALESCE($6, city),
			start_date = COALESCE($7, start_date),
			start_time = COALESCE($8, start_time),
			end_date = COALESCE($9, end_date),
			end_time = COALESCE($10, end_time),
			is_paid = COALESCE($11, is_paid),
			price = COALESCE($12, price),
			banner_image = COALESCE($13, banner_image),
			status = COALESCE($14, status),
			is_approved = COALESCE($15, is_approved),
			is_disabled = COALESCE($16, is_disabled),
			total_seats = total_seats + $17,
			available_seats = available_seats + $17,
			updated_at = now()
		WHERE id = $1 AND available_seats + $17 >= 0 AND ($17 = 0 OR total_seats = $18)
		RETURNING `+eventColumns,
		id, p.Title, p.Description, p.CategoryID, p.Venue, p.City,
		p.StartDate, p.StartTime, p.EndDate, p.EndTime, p.IsPaid, p.Price, p.BannerImageURL,
		status, p.IsApproved, p.IsDisabled, p.SeatDelta, p.SeatsFrom))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, gerr := r.GetEvent(ctx, id)
		if gerr != nil {
			return domain.Event{}, gerr
		}
		if p.SeatDelta != 0 && cur.TotalSeats != p.SeatsFrom {
			return domain.Event{}, domain.Errorf(domain.ErrConflict, "Seat count was changed by another update, please retry")
		}
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Cannot reduce seats below the number already booked")
	}
	return e, err
}

func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errEventNotFound()
	}
	return nil
}

func (r *Repository) ReserveSeats(ctx context.Context, eventID uuid.UUID, qty int) error {
	result, err := r.conn(ctx).Exec(ctx, `
		UPDATE events SET available_seats = available_seats - $2, updated_at = now()
		WHERE id = $1 AND is_approved AND NOT is_disabled AND available_seats >= $2
	`, eventID, qty)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	e, err := r.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !e.Bookable() {
		return domain.Errorf(domain.ErrUnavailable, "Event is not available for booking")
	}
	return domain.Errorf(domain.ErrInsufficientCapacity, "Not enough seats available")
}

func (r *Repository) ReleaseSeats(ctx context.Context, eventID uuid.UUID, qty int) error {
	result, err := r.conn(ctx).Exec(ctx, `
		UPDATE events SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now()
		WHERE id = $1
	`, eventID, qty)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errEventNotFound()
	}
	return nil
}
