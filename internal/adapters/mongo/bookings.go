package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ticketDoc struct {
	ID            string     `bson:"_id"`
	EventID       string     `bson:"eventId"`
	TicketType    string     `bson:"ticketType"`
	Price         float64    `bson:"price"`
	Quantity      int        `bson:"quantity"`
	SoldQuantity  int        `bson:"soldQuantity"`
	SaleStartDate *time.Time `bson:"saleStartDate,omitempty"`
	SaleEndDate   *time.Time `bson:"saleEndDate,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
}

func (d ticketDoc) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:            uuid.MustParse(d.ID),
		EventID:       uuid.MustParse(d.EventID),
		TicketType:    domain.TicketType(d.TicketType),
		Price:         d.Price,
		Quantity:      d.Quantity,
		SoldQuantity:  d.SoldQuantity,
		SaleStartDate: d.SaleStartDate,
		SaleEndDate:   d.SaleEndDate,
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

type bookingDoc struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"userId"`
	EventID       string    `bson:"eventId"`
	TicketID      string    `bson:"ticketId"`
	Quantity      int       `bson:"quantity"`
	TotalAmount   float64   `bson:"totalAmount"`
	BookingStatus string    `bson:"bookingStatus"`
	PaymentStatus string    `bson:"paymentStatus"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func (d bookingDoc) toDomain() domain.Booking {
	return domain.Booking{
		ID:            uuid.MustParse(d.ID),
		UserID:        uuid.MustParse(d.UserID),
		EventID:       uuid.MustParse(d.EventID),
		TicketID:      uuid.MustParse(d.TicketID),
		Quantity:      d.Quantity,
		TotalAmount:   d.TotalAmount,
		BookingStatus: domain.BookingStatus(d.BookingStatus),
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

type paymentDoc struct {
	ID            string    `bson:"_id"`
	BookingID     string    `bson:"bookingId"`
	PaymentMethod string    `bson:"paymentMethod"`
	TransactionID string    `bson:"transactionId"`
	Amount        float64   `bson:"amount"`
	PaymentStatus string    `bson:"paymentStatus"`
	PaymentDate   time.Time `bson:"paymentDate"`
}

func (d paymentDoc) toDomain() domain.Payment {
	return domain.Payment{
		ID:            uuid.MustParse(d.ID),
		BookingID:     uuid.MustParse(d.BookingID),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		TransactionID: d.TransactionID,
		Amount:        d.Amount,
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		PaymentDate:   d.PaymentDate.UTC(),
	}
}

// EnsureRegularTicket upserts on the unique (eventId, ticketType) index. Two
// concurrent first bookings can both miss and race the insert; the loser
// retries and reads the winner's ticket.
func (s *Store) EnsureRegularTicket(ctx context.Context, e domain.Event) (domain.Ticket, error) {
	t := domain.NewRegularTicket(e, time.Now().UTC())
	filter := bson.M{"eventId": e.ID.String(), "ticketType": string(domain.TicketRegular)}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          t.ID.String(),
		"price":        t.Price,
		"quantity":     t.Quantity,
		"soldQuantity": 0,
		"createdAt":    t.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc ticketDoc
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tickets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return domain.Ticket{}, errors.Wrap(err, "ensure regular ticket")
	}
	return doc.toDomain(), nil
}

func (s *Store) AddSoldQuantity(ctx context.Context, ticketID uuid.UUID, qty int) error {
	res, err := s.tickets.UpdateOne(ctx, bson.M{"_id": ticketID.String()}, bson.M{"$inc": bson.M{"soldQuantity": qty}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (domain.Ticket, error) {
	var doc ticketDoc
	err := s.tickets.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Ticket{}, domain.Errorf(domain.ErrNotFound, "Ticket not found")
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	return doc.toDomain(), nil
}

func (s *Store) FindTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.tickets.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, err
	}
	var docs []ticketDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d ticketDoc, _ int) domain.Ticket { return d.toDomain() }), nil
}

func (s *Store) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := s.bookings.InsertOne(ctx, bookingDoc{
		ID:            b.ID.String(),
		UserID:        b.UserID.String(),
		EventID:       b.EventID.String(),
		TicketID:      b.TicketID.String(),
		Quantity:      b.Quantity,
		TotalAmount:   b.TotalAmount,
		BookingStatus: string(b.BookingStatus),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt,
	})
	return err
}

func (s *Store) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	_, err := s.bookings.DeleteOne(ctx, bson.M{"_id": id.String()})
	return err
}

func (s *Store) MarkBookingPaid(ctx context.Context, id uuid.UUID) error {
	res, err := s.bookings.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"paymentStatus": string(domain.PaymentPaid)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var doc bookingDoc
	err := s.bookings.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Booking{}, domain.Errorf(domain.ErrNotFound, "Booking not found")
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return doc.toDomain(), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	cur, err := s.bookings.Find(ctx,
		bson.M{"userId": userID.String()},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d bookingDoc, _ int) domain.Booking { return d.toDomain() }), nil
}

func (s *Store) InsertPayment(ctx context.Context, p domain.Payment) error {
	_, err := s.payments.InsertOne(ctx, paymentDoc{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		PaymentMethod: string(p.PaymentMethod),
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		PaymentStatus: string(p.PaymentStatus),
		PaymentDate:   p.PaymentDate,
	})
	return err
}

func (s *Store) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := s.payments.DeleteOne(ctx, bson.M{"_id": id.String()})
	return err
}

func (s *Store) LatestPayment(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	var doc paymentDoc
	err := s.payments.FindOne(ctx,
		bson.M{"bookingId": bookingID.String()},
		options.FindOne().SetSort(bson.D{{Key: "paymentDate", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

func idStrings(ids []uuid.UUID) []string {
	return lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() })
}
