package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/bootstrap"
	"github.com/robertarktes/eventhub/internal/config"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/urfave/cli/v2"
)

var defaultCategories = []struct{ name, description string }{
	{"Music", "Concerts, gigs and live performances"},
	{"Sports", "Matches, tournaments and fitness events"},
	{"Technology", "Conferences, meetups and hackathons"},
	{"Art", "Exhibitions, galleries and workshops"},
	{"Food", "Food festivals and tastings"},
	{"Education", "Seminars, classes and lectures"},
	{"Business", "Networking and industry events"},
	{"Entertainment", "Comedy, theatre and shows"},
	{"Health & Wellness", "Yoga, meditation and wellness retreats"},
	{"Travel", "Tours, trips and outdoor adventures"},
}

func main() {
	app := &cli.App{
		Name:  "eventhubctl",
		Usage: "administer an EventHub deployment",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create tables or indexes for the configured store",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "insert the default event categories",
				Action: seed,
			},
			{
				Name:  "user",
				Usage: "create or replace a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "user id, generated when empty"},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleUser)},
				},
				Action: upsertUser,
			},
			{
				Name:  "token",
				Usage: "issue a signed access token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleUser)},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: issueToken,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStores(c *cli.Context) (*bootstrap.Stores, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	stores, err := bootstrap.OpenStore(c.Context, cfg, observability.NewLogger(cfg.LogLevel))
	return stores, cfg, err
}

func migrate(c *cli.Context) error {
	stores, cfg, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()
	if err := stores.Migrate(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "migrated %s store\n", cfg.StoreBackend)
	return nil
}

func seed(c *cli.Context) error {
	stores, _, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()
	if err := seedCategories(c.Context, stores.Store); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "seeded %d categories\n", len(defaultCategories))
	return nil
}

type categorySeeder interface {
	SeedCategories(ctx context.Context, cats []domain.Category) error
}

func seedCategories(ctx context.Context, s categorySeeder) error {
	cats := make([]domain.Category, 0, len(defaultCategories))
	for _, c := range defaultCategories {
		cats = append(cats, domain.Category{ID: uuid.New(), Name: c.name, Description: c.description, IsActive: true})
	}
	return s.SeedCategories(ctx, cats)
}

func parseRole(s string) (domain.Role, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return role, nil
}

func upsertUser(c *cli.Context) error {
	role, err := parseRole(c.String("role"))
	if err != nil {
		return err
	}
	id := uuid.New()
	if raw := c.String("id"); raw != "" {
		if id, err = uuid.Parse(raw); err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
	}

	stores, _, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	u := domain.User{ID: id, Name: c.String("name"), Email: c.String("email"), Role: role}
	if err := stores.Store.UpsertUser(c.Context, u); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, u.ID)
	return nil
}

func issueToken(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.String("user-id"))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	role, err := parseRole(c.String("role"))
	if err != nil {
		return err
	}
	tok, err := auth.IssueToken(cfg.JWTSecret, auth.Identity{UserID: id, Role: role, Email: c.String("email")}, c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}
