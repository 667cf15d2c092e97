package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/adapters/memory"
	redisadapter "github.com/robertarktes/eventhub/internal/adapters/redis"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/booking"
	"github.com/robertarktes/eventhub/internal/catalog"
	"github.com/robertarktes/eventhub/internal/config"
	"github.com/robertarktes/eventhub/internal/domain"
	httpapi "github.com/robertarktes/eventhub/internal/http"
	"github.com/robertarktes/eventhub/internal/idempotency"
	"github.com/robertarktes/eventhub/internal/invoice"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/robertarktes/eventhub/internal/rateLimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret     = "test-secret"
	adminEmail = "admin@eventhub.test"
)

type env struct {
	store    *memory.Store
	router   http.Handler
	event    domain.Event
	category domain.Category
}

type options struct {
	rl    *rateLimit.RateLimiter
	idemp *idempotency.Idempotency
}

func newEnv(t *testing.T, opts options) *env {
	t.Helper()
	ctx := context.Background()
	logger := observability.NewNopLogger()
	store := memory.NewStore()

	cat := domain.Category{ID: uuid.New(), Name: "Music", IsActive: true}
	require.NoError(t, store.SeedCategories(ctx, []domain.Category{cat}))

	day := time.Now().UTC().Add(72 * time.Hour).Truncate(24 * time.Hour)
	ev := domain.Event{
		ID:             uuid.New(),
		Title:          "Indie Fest",
		CategoryID:     cat.ID,
		OrganizerID:    uuid.New(),
		Venue:          "Open Grounds",
		City:           "Goa",
		StartDate:      day,
		EndDate:        day,
		TotalSeats:     50,
		AvailableSeats: 50,
		IsPaid:         true,
		Price:          499,
		IsApproved:     true,
		Status:         domain.StatusUpcoming,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.CreateEvent(ctx, ev))

	cfg := &config.Config{UserRateLimit: 10, IPRateLimit: 100}
	catalogSvc := catalog.NewService(store, nil, nil, time.UTC, logger)
	engine := booking.NewEngine(store, invoice.NewRenderer("EventHub", "Rs.", time.UTC), logger, booking.WithOutbox(store))
	h := httpapi.NewHandlers(cfg, catalogSvc, engine, logger, map[string]httpapi.ReadyCheck{
		"store": func(context.Context) error { return nil },
	})
	verifier := auth.NewVerifier(secret, auth.Policy{AdminEmail: adminEmail})

	return &env{
		store:    store,
		router:   httpapi.SetupRouter(h, logger, verifier, opts.rl, opts.idemp),
		event:    ev,
		category: cat,
	}
}

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.IssueToken(secret, id, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, tok string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	e := newEnv(t, options{})
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestCreateBooking_RequiresToken(t *testing.T) {
	e := newEnv(t, options{})

	rec := e.do(t, http.MethodPost, "/bookings", "", map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "UPI"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Not authorized, no token", body["message"])
	assert.Equal(t, false, body["success"])

	rec = e.do(t, http.MethodPost, "/bookings", "garbage", map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "UPI"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", decode(t, rec)["message"])
}

func TestCreateBooking_Flow(t *testing.T) {
	e := newEnv(t, options{})
	caller := auth.Identity{UserID: uuid.New(), Role: domain.RoleUser, Email: "fan@example.com"}
	tok := token(t, caller)

	rec := e.do(t, http.MethodPost, "/bookings", tok, map[string]interface{}{
		"eventId": e.event.ID, "quantity": 3, "paymentMethod": "Card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Booking confirmed and payment successful", body["message"])
	assert.Equal(t, true, body["success"])
	b := body["booking"].(map[string]interface{})
	assert.Equal(t, 1497.0, b["totalAmount"])
	assert.Equal(t, "paid", b["paymentStatus"])
	p := body["payment"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(p["transactionId"].(string), "TXN-"))
	bookingID := b["id"].(string)

	ev, err := e.store.GetEvent(context.Background(), e.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 47, ev.AvailableSeats)
	assert.Len(t, e.store.Outbox(), 1)

	rec = e.do(t, http.MethodGet, "/bookings/mine", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Bookings fetched successfully", body["message"])
	assert.Len(t, body["bookings"], 1)

	rec = e.do(t, http.MethodGet, "/bookings/"+bookingID+"/invoice", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=invoice-"+bookingID+".pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = e.do(t, http.MethodGet, "/bookings/urn:uuid:"+strings.ToUpper(bookingID)+"/invoice", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=invoice-"+bookingID+".pdf", rec.Header().Get("Content-Disposition"))

	other := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleUser})
	rec = e.do(t, http.MethodGet, "/bookings/"+bookingID+"/invoice", other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/bookings/not-a-uuid/invoice", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, http.MethodGet, "/bookings/"+uuid.NewString()+"/invoice", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBooking_Rejections(t *testing.T) {
	e := newEnv(t, options{})
	tok := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleUser})

	cases := []struct {
		name    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{"missing fields", map[string]interface{}{"eventId": e.event.ID}, 400, "eventId, quantity and paymentMethod are required"},
		{"bad method", map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "Cash"}, 400, "Payment method must be one of UPI, Card, NetBanking, Wallet"},
		{"unknown event", map[string]interface{}{"eventId": uuid.New(), "quantity": 1, "paymentMethod": "UPI"}, 404, "Event not found"},
		{"too many seats", map[string]interface{}{"eventId": e.event.ID, "quantity": 51, "paymentMethod": "UPI"}, 400, "Not enough seats available"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/bookings", tok, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decode(t, rec)["message"])
		})
	}
}

func TestEvents_PublicAndOrganizer(t *testing.T) {
	e := newEnv(t, options{})

	rec := e.do(t, http.MethodGet, "/events?city=goa", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["events"], 1)

	rec = e.do(t, http.MethodGet, "/events?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/events/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["categories"], 1)

	rec = e.do(t, http.MethodGet, "/events/"+e.event.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upcoming", decode(t, rec)["event"].(map[string]interface{})["status"])
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/events/"+uuid.NewString(), "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/events/nope", "", nil).Code)

	organizer := auth.Identity{UserID: uuid.New(), Role: domain.RoleOrganizer}
	input := map[string]interface{}{
		"title":      "Poetry Slam",
		"categoryId": e.category.ID,
		"venue":      "Cafe 9",
		"city":       "Pune",
		"startDate":  "2031-05-01",
		"endDate":    "2031-05-01",
		"startTime":  "18:00",
		"totalSeats": 40,
		"isPaid":     true,
		"price":      150,
	}
	rec = e.do(t, http.MethodPost, "/events", token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleUser}), input)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	nested := map[string]interface{}{}
	for k, v := range input {
		nested[k] = v
	}
	nested["title"] = map[string]interface{}{"a": 1}
	rec = e.do(t, http.MethodPost, "/events", token(t, organizer), nested)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Field title must be a string, number or boolean", decode(t, rec)["message"])

	rec = e.do(t, http.MethodPost, "/events", token(t, organizer), input)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["event"].(map[string]interface{})
	assert.Equal(t, false, created["isApproved"])
	assert.Equal(t, 40.0, created["availableSeats"])
	id := created["id"].(string)

	rec = e.do(t, http.MethodGet, "/events/organizer/"+organizer.UserID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["events"], 1)

	rec = e.do(t, http.MethodPut, "/events/"+id, token(t, organizer), map[string]interface{}{"totalSeats": 60})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 60.0, decode(t, rec)["event"].(map[string]interface{})["availableSeats"])

	rec = e.do(t, http.MethodDelete, "/events/"+id, token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleOrganizer}), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, http.MethodDelete, "/events/"+id, token(t, organizer), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_Moderation(t *testing.T) {
	e := newEnv(t, options{})
	admin := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleAdmin, Email: adminEmail})
	impostor := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleAdmin, Email: "mallory@example.com"})
	path := "/admin/events/" + e.event.ID.String()

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/admin/events", impostor, nil).Code)

	rec := e.do(t, http.MethodPut, path+"/disable", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["event"].(map[string]interface{})["isDisabled"])

	userTok := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleUser})
	rec = e.do(t, http.MethodPost, "/bookings", userTok, map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "UPI"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event is not available for booking", decode(t, rec)["message"])

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPut, path+"/enable", admin, nil).Code)

	rec = e.do(t, http.MethodPut, path+"/status", admin, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPut, path+"/status", admin, map[string]string{"status": "postponed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/admin/events", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["events"], 1)
}

func TestIdempotency(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(db), time.Hour)
	e := newEnv(t, options{idemp: idemp})

	caller := auth.Identity{UserID: uuid.New(), Role: domain.RoleUser}
	tok := token(t, caller)
	body := map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "UPI"}
	key := "retry-0123456789abcdef"
	scoped := idempotency.Scope(caller.UserID.String(), key)

	rec := e.do(t, http.MethodPost, "/bookings", tok, body, "Idempotency-Key", "short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := json.Marshal(redisadapter.IdempResponse{Status: 201, ContentType: "application/json", Result: []byte(`{"message":"cached"}`)})
	require.NoError(t, err)
	mock.ExpectGet("idemp:" + scoped).SetVal(string(stored))
	rec = e.do(t, http.MethodPost, "/bookings", tok, body, "Idempotency-Key", key)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"message":"cached"}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))

	mock.ExpectGet("idemp:" + scoped).RedisNil()
	mock.ExpectSetNX("idemp:lock:"+scoped, 1, 30*time.Second).SetVal(false)
	rec = e.do(t, http.MethodPost, "/bookings", tok, body, "Idempotency-Key", key)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ev, err := e.store.GetEvent(context.Background(), e.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, ev.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := rateLimit.NewRateLimiter(redisadapter.NewCache(db), observability.NewNopLogger())
	e := newEnv(t, options{rl: rl})
	tok := token(t, auth.Identity{UserID: uuid.New(), Role: domain.RoleUser})

	mock.ExpectIncr("rl:ip:192.0.2.1").SetVal(101)
	mock.ExpectExpireNX("rl:ip:192.0.2.1", time.Minute).SetVal(false)

	rec := e.do(t, http.MethodPost, "/bookings", tok, map[string]interface{}{"eventId": e.event.ID, "quantity": 1, "paymentMethod": "UPI"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
