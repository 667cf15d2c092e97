package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
)

const catalogVersionKey = "catalog:version"

type Cache struct {
	client redis.UniversalClient
}

func NewCache(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// EventListCache keeps public catalog listings under a version prefix.
// Invalidate bumps the version so every older entry stops being read and
// simply expires. A miss hands back the versioned key it looked up, so a fill
// that loses a race with Invalidate lands under the retired version.
type EventListCache struct {
	cache  *Cache
	ttl    time.Duration
	logger observability.Logger
}

func NewEventListCache(cache *Cache, ttl time.Duration, logger observability.Logger) *EventListCache {
	return &EventListCache{cache: cache, ttl: ttl, logger: logger}
}

func (c *EventListCache) key(ctx context.Context, k string) (string, error) {
	v, err := c.cache.client.Get(ctx, catalogVersionKey).Int64()
	if err == redis.Nil {
		v, err = 0, nil
	}
	if err != nil {
		return "", err
	}
	return "catalog:v" + strconv.FormatInt(v, 10) + ":" + k, nil
}

func (c *EventListCache) GetEvents(ctx context.Context, k string) ([]domain.Event, string, bool) {
	key, err := c.key(ctx, k)
	if err != nil {
		c.logger.WithError(err).Warn("catalog cache version lookup failed")
		return nil, "", false
	}
	data, err := c.cache.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("catalog cache read failed")
			return nil, "", false
		}
		return nil, key, false
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, key, false
	}
	return events, key, true
}

// SetEvents stores events under key, the versioned key returned by GetEvents.
func (c *EventListCache) SetEvents(ctx context.Context, key string, events []domain.Event) {
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := c.cache.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("catalog cache write failed")
	}
}

func (c *EventListCache) Invalidate(ctx context.Context) {
	if err := c.cache.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		c.logger.WithError(err).Warn("catalog cache invalidation failed")
	}
}
