package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/eventhub/internal/domain"
)

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	var role string
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, email, role, is_blocked FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &role, &u.IsBlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	u.Role = domain.Role(role)
	return u, err
}

func (r *Repository) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPSERT INTO users (id, name, email, role, is_blocked) VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Email, string(u.Role), u.IsBlocked)
	return err
}

func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	var c domain.Category
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, description, is_active FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.Errorf(domain.ErrNotFound, "Category not found")
	}
	return c, err
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name, description, is_active FROM categories WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SeedCategories inserts categories by name, keeping existing ones untouched.
func (r *Repository) SeedCategories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO categories (id, name, description, is_active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, c.ID, c.Name, c.Description, c.IsActive)
		if err != nil {
			return errors.Wrapf(err, "seed category %s", c.Name)
		}
	}
	return nil
}
