package mongo

import (
	"context"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventDoc struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	CategoryID     string    `bson:"categoryId"`
	OrganizerID    string    `bson:"organizerId"`
	Venue          string    `bson:"venue"`
	City           string    `bson:"city"`
	StartDate      time.Time `bson:"startDate"`
	StartTime      string    `bson:"startTime,omitempty"`
	EndDate        time.Time `bson:"endDate"`
	EndTime        string    `bson:"endTime,omitempty"`
	TotalSeats     int       `bson:"totalSeats"`
	AvailableSeats int       `bson:"availableSeats"`
	IsPaid         bool      `bson:"isPaid"`
	Price          float64   `bson:"price"`
	BannerImage    string    `bson:"bannerImage,omitempty"`
	IsApproved     bool      `bson:"isApproved"`
	IsDisabled     bool      `bson:"isDisabled"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func toEventDoc(e domain.Event) EventDoc {
	return EventDoc{
		ID:             e.ID.String(),
		Title:          e.Title,
		Description:    e.Description,
		CategoryID:     e.CategoryID.String(),
		OrganizerID:    e.OrganizerID.String(),
		Venue:          e.Venue,
		City:           e.City,
		StartDate:      e.StartDate,
		StartTime:      e.StartTime,
		EndDate:        e.EndDate,
		EndTime:        e.EndTime,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		IsPaid:         e.IsPaid,
		Price:          e.Price,
		BannerImage:    e.BannerImageURL,
		IsApproved:     e.IsApproved,
		IsDisabled:     e.IsDisabled,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func (d EventDoc) toDomain() domain.Event {
	return domain.Event{
		ID:             uuid.MustParse(d.ID),
		Title:          d.Title,
		Description:    d.Description,
		CategoryID:     uuid.MustParse(d.CategoryID),
		OrganizerID:    uuid.MustParse(d.OrganizerID),
		Venue:          d.Venue,
		City:           d.City,
		StartDate:      d.StartDate.UTC(),
		StartTime:      d.StartTime,
		EndDate:        d.EndDate.UTC(),
		EndTime:        d.EndTime,
		TotalSeats:     d.TotalSeats,
		AvailableSeats: d.AvailableSeats,
		IsPaid:         d.IsPaid,
		Price:          d.Price,
		BannerImageURL: d.BannerImage,
		IsApproved:     d.IsApproved,
		IsDisabled:     d.IsDisabled,
		Status:         domain.EventStatus(d.Status),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func errEventNotFound() error { return domain.Errorf(domain.ErrNotFound, "Event not found") }

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) error {
	_, err := s.events.InsertOne(ctx, toEventDoc(e))
	if mongo.IsDuplicateKeyError(err) {
		return domain.Errorf(domain.ErrConflict, "Event already exists")
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to create event")
	}
	return err
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var doc EventDoc
	err := s.events.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Event{}, errEventNotFound()
	}
	if err != nil {
		return domain.Event{}, err
	}
	return doc.toDomain(), nil
}

func (s *Store) FindEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error) {
	filter := bson.M{}
	if len(q.IDs) > 0 {
		filter["_id"] = bson.M{"$in": lo.Map(q.IDs, func(id uuid.UUID, _ int) string { return id.String() })}
	}
	if q.OnlyListed {
		filter["isApproved"] = true
		filter["isDisabled"] = false
	}
	if q.CategoryID != nil {
		filter["categoryId"] = q.CategoryID.String()
	}
	if q.OrganizerID != nil {
		filter["organizerId"] = q.OrganizerID.String()
	}
	if q.City != "" {
		filter["city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.City) + "$", Options: "i"}
	}

	sort := bson.D{{Key: "startDate", Value: 1}}
	if q.NewestFirst {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}
	cur, err := s.events.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var docs []EventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d EventDoc, _ int) domain.Event { return d.toDomain() }), nil
}

func (s *Store) UpdateEvent(ctx context.Context, id uuid.UUID, p domain.EventPatch) (domain.Event, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	put := func(key string, ok bool, v interface{}) {
		if ok {
			set[key] = v
		}
	}
	put("title", p.Title != nil, lo.FromPtr(p.Title))
	put("description", p.Description != nil, lo.FromPtr(p.Description))
	put("venue", p.Venue != nil, lo.FromPtr(p.Venue))
	put("city", p.City != nil, lo.FromPtr(p.City))
	put("startTime", p.StartTime != nil, lo.FromPtr(p.StartTime))
	put("endTime", p.EndTime != nil, lo.FromPtr(p.EndTime))
	put("bannerImage", p.BannerImageURL != nil, lo.FromPtr(p.BannerImageURL))
	put("startDate", p.StartDate != nil, lo.FromPtr(p.StartDate))
	put("endDate", p.EndDate != nil, lo.FromPtr(p.EndDate))
	put("isPaid", p.IsPaid != nil, lo.FromPtr(p.IsPaid))
	put("price", p.Price != nil, lo.FromPtr(p.Price))
	put("isApproved", p.IsApproved != nil, lo.FromPtr(p.IsApproved))
	put("isDisabled", p.IsDisabled != nil, lo.FromPtr(p.IsDisabled))
	if p.CategoryID != nil {
		set["categoryId"] = p.CategoryID.String()
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}

	filter := bson.M{"_id": id.String()}
	update := bson.M{"$set": set}
	if p.SeatDelta != 0 {
		update["$inc"] = bson.M{"totalSeats": p.SeatDelta, "availableSeats": p.SeatDelta}
		filter["totalSeats"] = p.SeatsFrom
		if p.SeatDelta < 0 {
			filter["availableSeats"] = bson.M{"$gte": -p.SeatDelta}
		}
	}

	var doc EventDoc
	err := s.events.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, gerr := s.GetEvent(ctx, id)
		if gerr != nil {
			return domain.Event{}, gerr
		}
		if p.SeatDelta != 0 && cur.TotalSeats != p.SeatsFrom {
			return domain.Event{}, domain.Errorf(domain.ErrConflict, "Seat count was changed by another update, please retry")
		}
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Cannot reduce seats below the number already booked")
	}
	if err != nil {
		return domain.Event{}, err
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errEventNotFound()
	}
	return nil
}

// ReserveSeats decrements availableSeats in one conditional update. When
// nothing matches it reads the event back to report why.
func (s *Store) ReserveSeats(ctx context.Context, eventID uuid.UUID, qty int) error {
	res, err := s.events.UpdateOne(ctx,
		bson.M{
			"_id":            eventID.String(),
			"isApproved":     true,
			"isDisabled":     false,
			"availableSeats": bson.M{"$gte": qty},
		},
		bson.M{
			"$inc": bson.M{"availableSeats": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !e.Bookable() {
		return domain.Errorf(domain.ErrUnavailable, "Event is not available for booking")
	}
	return domain.Errorf(domain.ErrInsufficientCapacity, "Not enough seats available")
}

func (s *Store) ReleaseSeats(ctx context.Context, eventID uuid.UUID, qty int) error {
	res, err := s.events.UpdateOne(ctx,
		bson.M{"_id": eventID.String()},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"availableSeats": bson.M{"$min": bson.A{bson.M{"$add": bson.A{"$availableSeats", qty}}, "$totalSeats"}},
				"updatedAt":      time.Now().UTC(),
			}}},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errEventNotFound()
	}
	return nil
}
