package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type outboxDoc struct {
	ID            string     `bson:"_id"`
	AggregateType string     `bson:"aggregateType"`
	AggregateID   string     `bson:"aggregateId"`
	EventType     string     `bson:"eventType"`
	Payload       []byte     `bson:"payload"`
	CreatedAt     time.Time  `bson:"createdAt"`
	PublishedAt   *time.Time `bson:"publishedAt,omitempty"`
	Status        string     `bson:"status"`
	DedupeKey     string     `bson:"dedupeKey"`
}

func (s *Store) InsertOutbox(ctx context.Context, rec domain.OutboxRecord) error {
	_, err := s.outbox.InsertOne(ctx, outboxDoc{
		ID:            rec.ID.String(),
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID.String(),
		EventType:     rec.EventType,
		Payload:       rec.Payload,
		CreatedAt:     rec.CreatedAt,
		Status:        "NEW",
		DedupeKey:     rec.DedupeKey,
	})
	return err
}

func (s *Store) GetUnpublishedOutbox(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	cur, err := s.outbox.Find(ctx,
		bson.M{"status": "NEW"},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	var docs []outboxDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.OutboxRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.OutboxRecord{
			ID:            uuid.MustParse(d.ID),
			AggregateType: d.AggregateType,
			AggregateID:   uuid.MustParse(d.AggregateID),
			EventType:     d.EventType,
			Payload:       d.Payload,
			CreatedAt:     d.CreatedAt.UTC(),
			PublishedAt:   d.PublishedAt,
			Status:        d.Status,
			DedupeKey:     d.DedupeKey,
		})
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	res, err := s.outbox.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": "PUBLISHED", "publishedAt": publishedAt}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
