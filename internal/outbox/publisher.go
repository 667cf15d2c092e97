// Package outbox relays committed booking events from the store to the broker.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
)

type Source interface {
	GetUnpublishedOutbox(ctx context.Context, limit int) ([]domain.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

const (
	defaultInterval = 5 * time.Second
	batchSize       = 10
	publishAttempts = 3
)

type Publisher struct {
	source   Source
	broker   Broker
	logger   observability.Logger
	interval time.Duration
	now      func() time.Time
}

func NewPublisher(source Source, broker Broker, logger observability.Logger) *Publisher {
	return &Publisher{
		source:   source,
		broker:   broker,
		logger:   logger,
		interval: defaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) WithInterval(d time.Duration) *Publisher {
	p.interval = d
	return p
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil {
				p.logger.WithError(err).Error("outbox flush failed")
			}
		}
	}
}

// Flush publishes one batch and returns how many records were marked published.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	records, err := p.source.GetUnpublishedOutbox(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	var oldest time.Time
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:    rec.DedupeKey,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    rec.CreatedAt,
			Type:         rec.EventType,
			Body:         rec.Payload,
		}
		if err := p.publish(ctx, rec.EventType, msg); err != nil {
			observability.OutboxFailures.Inc()
			p.logger.WithError(err).WithField("outbox_id", rec.ID).Warn("outbox publish failed")
			continue
		}
		if err := p.source.MarkPublished(ctx, rec.ID, p.now()); err != nil {
			p.logger.WithError(err).WithField("outbox_id", rec.ID).Error("failed to mark outbox record published")
			continue
		}
		if oldest.IsZero() || rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		published++
	}
	if !oldest.IsZero() {
		observability.OutboxLag.Set(p.now().Sub(oldest).Seconds())
	}
	return published, nil
}

func (p *Publisher) publish(ctx context.Context, key string, msg amqp.Publishing) error {
	var err error
	for i := 0; i < publishAttempts; i++ {
		if i > 0 {
			observability.RabbitPublishRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<i) * 100 * time.Millisecond):
			}
		}
		if err = p.broker.Publish(ctx, key, msg); err == nil {
			return nil
		}
	}
	return err
}
