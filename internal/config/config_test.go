package config_test

import (
	"testing"
	"time"

	"github.com/robertarktes/eventhub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CATALOG_CACHE_TTL", "garbage")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-3")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 10, cfg.UserRateLimit)
	assert.Equal(t, "EventHub", cfg.BrandName)
	assert.Equal(t, "Rs.", cfg.CurrencySymbol)
	assert.Equal(t, time.UTC, cfg.EventLocation)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("IDEMPOTENCY_TTL", "10m")
	t.Setenv("EVENT_TIMEZONE", "Asia/Kolkata")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example.com/")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.EventLocation.String())
	assert.Equal(t, "https://cdn.example.com", cfg.PublicBaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err = config.Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "crdb")
	t.Setenv("CRDB_DSN", "")
	_, err = config.Load()
	assert.Error(t, err)
}
