// Package bootstrap opens the store and redis clients selected by config.
package bootstrap

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/eventhub/internal/adapters/crdb"
	"github.com/robertarktes/eventhub/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/eventhub/internal/adapters/mongo"
	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/catalog"
	"github.com/robertarktes/eventhub/internal/config"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/robertarktes/eventhub/internal/outbox"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is what every backend provides.
type Store interface {
	catalog.Store
	booking.Store
	booking.Outbox
	outbox.Source
	SeedCategories(ctx context.Context, cats []domain.Category) error
	UpsertUser(ctx context.Context, u domain.User) error
}

type Stores struct {
	Store Store
	// Transactor is nil when the backend cannot run multi-record
	// transactions; the booking engine then compensates on failure.
	Transactor booking.Transactor
	// Durable reports whether the outbox survives a restart.
	Durable bool

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Migrate creates tables or indexes for the backend.
func (s *Stores) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *Stores) Close() {
	s.close()
}

func OpenStore(ctx context.Context, cfg *config.Config, logger observability.Logger) (*Stores, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return &Stores{Store: memory.NewStore(), ping: noop, migrate: noop, close: func() {}}, nil

	case config.BackendCRDB:
		pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
		if err != nil {
			return nil, errors.Wrap(err, "connect to crdb")
		}
		repo := crdb.NewRepository(pool)
		return &Stores{
			Store:      repo,
			Transactor: repo,
			Durable:    true,
			ping:       repo.Ping,
			migrate:    repo.Migrate,
			close:      pool.Close,
		}, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, errors.Wrap(err, "connect to mongo")
		}
		store := mongoadapter.NewStore(client, cfg.MongoDB, logger)
		s := &Stores{
			Store:   store,
			Durable: true,
			ping:    store.Ping,
			migrate: store.EnsureIndexes,
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				client.Disconnect(ctx)
			},
		}
		if cfg.MongoTransactions {
			s.Transactor = store
		}
		return s, nil
	}
	return nil, errors.Newf("unknown store backend %q", cfg.StoreBackend)
}

// OpenRedis returns nil when no address is configured.
func OpenRedis(cfg *config.Config) *redisclient.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
}
