// Package mongo stores the catalog, bookings and outbox in MongoDB. Documents
// use the string form of their uuid as _id.
package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	client     *mongo.Client
	events     *mongo.Collection
	categories *mongo.Collection
	tickets    *mongo.Collection
	bookings   *mongo.Collection
	payments   *mongo.Collection
	users      *mongo.Collection
	outbox     *mongo.Collection
	logger     observability.Logger
}

func NewStore(client *mongo.Client, db string, logger observability.Logger) *Store {
	d := client.Database(db)
	return &Store{
		client:     client,
		events:     d.Collection("events"),
		categories: d.Collection("categories"),
		tickets:    d.Collection("tickets"),
		bookings:   d.Collection("bookings"),
		payments:   d.Collection("payments"),
		users:      d.Collection("users"),
		outbox:     d.Collection("outbox"),
		logger:     logger,
	}
}

// WithTx runs fn in a multi-document transaction. It needs a replica set.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.events, []mongo.IndexModel{
			{Keys: bson.D{{Key: "isApproved", Value: 1}, {Key: "isDisabled", Value: 1}, {Key: "startDate", Value: 1}}},
			{Keys: bson.D{{Key: "organizerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.categories, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.tickets, []mongo.IndexModel{
			{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "ticketType", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.bookings, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.payments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "paymentDate", Value: -1}}},
		}},
		{s.outbox, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "dedupeKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", idx.coll.Name())
		}
	}
	return nil
}

type userDoc struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	Email     string `bson:"email"`
	Role      string `bson:"role"`
	IsBlocked bool   `bson:"isBlocked"`
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        uuid.MustParse(doc.ID),
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      domain.Role(doc.Role),
		IsBlocked: doc.IsBlocked,
	}, nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	doc := userDoc{ID: u.ID.String(), Name: u.Name, Email: u.Email, Role: string(u.Role), IsBlocked: u.IsBlocked}
	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type categoryDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
	IsActive    bool   `bson:"isActive"`
}

func (d categoryDoc) toDomain() domain.Category {
	return domain.Category{ID: uuid.MustParse(d.ID), Name: d.Name, Description: d.Description, IsActive: d.IsActive}
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (domain.Category, error) {
	var doc categoryDoc
	err := s.categories.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Category{}, domain.Errorf(domain.ErrNotFound, "Category not found")
	}
	if err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cur, err := s.categories.Find(ctx, bson.M{"isActive": true}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// SeedCategories inserts categories by name, keeping existing ones untouched.
func (s *Store) SeedCategories(ctx context.Context, cats []domain.Category) error {
	for _, c := range cats {
		doc := categoryDoc{ID: c.ID.String(), Name: c.Name, Description: c.Description, IsActive: c.IsActive}
		_, err := s.categories.UpdateOne(ctx,
			bson.M{"name": c.Name},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errors.Wrapf(err, "seed category %s", c.Name)
		}
	}
	return nil
}
