package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	mongoadapter "github.com/robertarktes/eventhub/internal/adapters/mongo"
	"github.com/robertarktes/eventhub/internal/adapters/rabbit"
	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/config"
	"github.com/robertarktes/eventhub/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queueName = "eventhub.audit"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), "eventhub-audit-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer client.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(client.Database(cfg.MongoDB), logger)
	if err := audit.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("failed to create audit indexes: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, queueName, booking.EventBookingConfirmed)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	worker := NewAuditWorker(audit, logger)
	go worker.Run(ctx, deliveries)
	logger.Info("Audit worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown audit worker")
}

type auditLog interface {
	LogBookingConfirmed(ctx context.Context, messageID string, body []byte) error
}

type AuditWorker struct {
	audit  auditLog
	logger observability.Logger
}

func NewAuditWorker(audit auditLog, logger observability.Logger) *AuditWorker {
	return &AuditWorker{audit: audit, logger: logger}
}

func (w *AuditWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := w.handleWithRetry(ctx, d.MessageId, d.Body); err != nil {
				w.logger.WithError(err).WithField("message_id", d.MessageId).Error("failed to record booking after retries")
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func (w *AuditWorker) handleWithRetry(ctx context.Context, messageID string, body []byte) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = w.audit.LogBookingConfirmed(ctx, messageID, body); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
