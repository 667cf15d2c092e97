package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/eventhub/internal/adapters/redis"
	"github.com/robertarktes/eventhub/internal/idempotency"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cancelAwareClient fails writes on a done context the way a live connection
// does. The mock client ignores cancellation.
type cancelAwareClient struct {
	redis.UniversalClient
}

func (c cancelAwareClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if err := ctx.Err(); err != nil {
		cmd := redis.NewStatusCmd(ctx)
		cmd.SetErr(err)
		return cmd
	}
	return c.UniversalClient.Set(ctx, key, value, ttl)
}

func (c cancelAwareClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if err := ctx.Err(); err != nil {
		cmd := redis.NewIntCmd(ctx)
		cmd.SetErr(err)
		return cmd
	}
	return c.UniversalClient.Del(ctx, keys...)
}

func TestIdempotencyMiddleware_StoresResponseAfterClientLeft(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(cancelAwareClient{db}), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	body := `{"message":"Booking confirmed"}`
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(body))
		// The client times out once the booking is committed.
		cancel()
	})

	key := "timeout-0123456789abcdef"
	scoped := idempotency.Scope("", key)
	stored, err := json.Marshal(redisadapter.IdempResponse{Status: http.StatusCreated, ContentType: "application/json", Result: []byte(body)})
	require.NoError(t, err)

	mock.ExpectGet("idemp:" + scoped).RedisNil()
	mock.ExpectSetNX("idemp:lock:"+scoped, 1, 30*time.Second).SetVal(true)
	mock.ExpectSet("idemp:"+scoped, stored, time.Hour).SetVal("OK")
	mock.ExpectDel("idemp:lock:" + scoped).SetVal(1)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`)).WithContext(ctx)
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	IdempotencyMiddleware(idemp, observability.NewNopLogger())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
