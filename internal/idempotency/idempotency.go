// Package idempotency replays stored responses for retried requests that
// carry the same Idempotency-Key.
package idempotency

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	redisadapter "github.com/robertarktes/eventhub/internal/adapters/redis"
)

// ErrInFlight is returned by Begin when the same key is being processed.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

const lockTTL = 30 * time.Second

type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status      int
	ContentType string
	Result      []byte
}

// Scope ties a client key to the caller so two users can reuse a key.
func Scope(userID, key string) string {
	return userID + ":" + key
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	r, err := i.redis.Get(ctx, key)
	if err != nil || r == nil {
		return nil, err
	}
	return &Response{Status: r.Status, ContentType: r.ContentType, Result: r.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.redis.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
}

// Begin returns a stored response for key if there is one. Otherwise it
// takes the in-flight lock and returns a nil response; the caller must call
// Finish once it has produced its own.
func (i *Idempotency) Begin(ctx context.Context, key string) (*Response, error) {
	if resp, err := i.Get(ctx, key); err != nil || resp != nil {
		return resp, err
	}
	ok, err := i.redis.Lock(ctx, key, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}
	return nil, nil
}

// Finish stores resp, unless it is nil, and releases the in-flight lock.
func (i *Idempotency) Finish(ctx context.Context, key string, resp *Response) error {
	var err error
	if resp != nil {
		err = i.Set(ctx, key, *resp)
	}
	return errors.CombineErrors(err, i.redis.Unlock(ctx, key))
}
