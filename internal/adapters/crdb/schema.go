package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'organizer', 'admin')),
		is_blocked BOOL NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOL NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id UUID NOT NULL,
		organizer_id UUID NOT NULL,
		venue TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_date TIMESTAMPTZ NOT NULL,
		end_time TEXT NOT NULL DEFAULT '',
		total_seats INT NOT NULL CHECK (total_seats >= 0),
		available_seats INT NOT NULL CHECK (available_seats >= 0),
		is_paid BOOL NOT NULL DEFAULT false,
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		banner_image TEXT NOT NULL DEFAULT '',
		is_approved BOOL NOT NULL DEFAULT false,
		is_disabled BOOL NOT NULL DEFAULT false,
		status TEXT NOT NULL DEFAULT 'upcoming',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		INDEX events_listed_idx (is_approved, is_disabled, start_date),
		INDEX events_organizer_idx (organizer_id, created_at DESC)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL,
		ticket_type TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		quantity INT NOT NULL,
		sold_quantity INT NOT NULL DEFAULT 0,
		sale_start_date TIMESTAMPTZ,
		sale_end_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (event_id, ticket_type)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		event_id UUID NOT NULL,
		ticket_id UUID NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		total_amount NUMERIC(12,2) NOT NULL,
		booking_status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		INDEX bookings_user_idx (user_id, created_at DESC)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		booking_id UUID NOT NULL,
		payment_method TEXT NOT NULL,
		transaction_id TEXT NOT NULL UNIQUE,
		amount NUMERIC(12,2) NOT NULL,
		payment_status TEXT NOT NULL,
		payment_date TIMESTAMPTZ NOT NULL,
		INDEX payments_booking_idx (booking_id, payment_date DESC)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
		dedupe_key TEXT NOT NULL UNIQUE,
		INDEX outbox_status_idx (status, created_at)
	)`,
}

// Migrate creates the tables if they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
