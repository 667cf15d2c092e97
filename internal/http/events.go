package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/catalog"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/samber/lo"
)

const maxUploadBytes = 10 << 20

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	events, err := h.catalog.ListPublic(r.Context(), f, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Events fetched successfully", envelope{"events": nonNil(events)})
}

func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	writeOK(w, http.StatusOK, "Categories fetched successfully", envelope{"categories": cats})
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid event id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e, err := h.catalog.Get(r.Context(), id, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Event fetched successfully", envelope{"event": e})
}

func (h *Handlers) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "organizerId", "Invalid organizer id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	events, err := h.catalog.ListByOrganizer(r.Context(), id, h.now())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Events fetched successfully", envelope{"events": nonNil(events)})
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := readEventForm(r)
	defer cleanup()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := form.input()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	caller, _ := auth.FromContext(r.Context())
	e, err := h.catalog.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, "Event created successfully", envelope{"event": h.catalog.Present(e, h.now())})
}

func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid event id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	form, cleanup, err := readEventForm(r)
	defer cleanup()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ch, err := form.changes()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	caller, _ := auth.FromContext(r.Context())
	e, err := h.catalog.Update(r.Context(), caller, id, ch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Event updated successfully", envelope{"event": e})
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid event id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	caller, _ := auth.FromContext(r.Context())
	if err := h.catalog.Delete(r.Context(), caller, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, "Event deleted successfully", nil)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{City: q.Get("city")}
	for _, s := range q["status"] {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Statuses = append(f.Statuses, domain.EventStatus(strings.ToLower(part)))
			}
		}
	}
	if c := q.Get("categoryId"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			return f, domain.Errorf(domain.ErrInvalidArgument, "Invalid category id")
		}
		f.CategoryID = &id
	}
	return f, nil
}

func pathID(r *http.Request, param, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.ErrInvalidArgument, message)
	}
	return id, nil
}

func nonNil(events []domain.Event) []domain.Event {
	if events == nil {
		return []domain.Event{}
	}
	return events
}

// eventForm holds the submitted fields of a create or update request as
// strings, whether they came from JSON or a multipart form.
type eventForm struct {
	fields     map[string]string
	bannerPath string
}

func readEventForm(r *http.Request) (*eventForm, func(), error) {
	form := &eventForm{fields: map[string]string{}}
	cleanup := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, cleanup, domain.Errorf(domain.ErrInvalidArgument, "Invalid request body")
		}
		for k, v := range body {
			switch v := v.(type) {
			case nil:
			case string:
				form.fields[k] = v
			case float64:
				form.fields[k] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				form.fields[k] = strconv.FormatBool(v)
			default:
				return nil, cleanup, domain.Errorf(domain.ErrInvalidArgument, "Field %s must be a string, number or boolean", k)
			}
		}
		return form, cleanup, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, cleanup, domain.Errorf(domain.ErrInvalidArgument, "Invalid multipart form")
	}
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			form.fields[k] = vs[0]
		}
	}

	file, header, err := r.FormFile("bannerImage")
	if err == http.ErrMissingFile {
		return form, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, domain.Errorf(domain.ErrInvalidArgument, "Invalid banner image")
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "banner-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = func() { os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, cleanup, err
	}
	if err := tmp.Close(); err != nil {
		return nil, cleanup, err
	}
	form.bannerPath = tmp.Name()
	return form, cleanup, nil
}

func (f *eventForm) str(key string) *string {
	v, ok := f.fields[key]
	if !ok {
		return nil
	}
	return &v
}

func (f *eventForm) input() (catalog.EventInput, error) {
	ch, err := f.changes()
	if err != nil {
		return catalog.EventInput{}, err
	}
	return catalog.EventInput{
		Title:       lo.FromPtr(ch.Title),
		Description: lo.FromPtr(ch.Description),
		CategoryID:  lo.FromPtr(ch.CategoryID),
		Venue:       lo.FromPtr(ch.Venue),
		City:        lo.FromPtr(ch.City),
		StartDate:   lo.FromPtr(ch.StartDate),
		StartTime:   lo.FromPtr(ch.StartTime),
		EndDate:     lo.FromPtr(ch.EndDate),
		EndTime:     lo.FromPtr(ch.EndTime),
		TotalSeats:  lo.FromPtr(ch.TotalSeats),
		IsPaid:      lo.FromPtr(ch.IsPaid),
		Price:       lo.FromPtr(ch.Price),
		BannerPath:  ch.BannerPath,
	}, nil
}

func (f *eventForm) changes() (catalog.EventChanges, error) {
	ch := catalog.EventChanges{
		Title:       f.str("title"),
		Description: f.str("description"),
		Venue:       f.str("venue"),
		City:        f.str("city"),
		StartTime:   f.str("startTime"),
		EndTime:     f.str("endTime"),
		BannerPath:  f.bannerPath,
	}
	var err error
	if s := f.str("categoryId"); s != nil && *s != "" {
		id, perr := uuid.Parse(*s)
		if perr != nil {
			return ch, domain.Errorf(domain.ErrInvalidArgument, "Invalid category id")
		}
		ch.CategoryID = &id
	}
	if ch.StartDate, err = f.date("startDate"); err != nil {
		return ch, err
	}
	if ch.EndDate, err = f.date("endDate"); err != nil {
		return ch, err
	}
	if s := f.str("totalSeats"); s != nil {
		n, perr := strconv.ParseFloat(*s, 64)
		if perr != nil || n != float64(int(n)) {
			return ch, domain.Errorf(domain.ErrInvalidArgument, "totalSeats must be a whole number")
		}
		ch.TotalSeats = lo.ToPtr(int(n))
	}
	if s := f.str("isPaid"); s != nil {
		b, perr := strconv.ParseBool(*s)
		if perr != nil {
			return ch, domain.Errorf(domain.ErrInvalidArgument, "isPaid must be true or false")
		}
		ch.IsPaid = &b
	}
	if s := f.str("price"); s != nil && *s != "" {
		p, perr := strconv.ParseFloat(*s, 64)
		if perr != nil {
			return ch, domain.Errorf(domain.ErrInvalidArgument, "price must be a number")
		}
		ch.Price = &p
	}
	if s := f.str("status"); s != nil {
		st := domain.EventStatus(strings.ToLower(*s))
		ch.Status = &st
	}
	return ch, nil
}

// date accepts a calendar day or an RFC 3339 timestamp and keeps only the day.
func (f *eventForm) date(key string) (*time.Time, error) {
	s := f.str(key)
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, *s); err != nil {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "Invalid %s", key)
		}
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}
