package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/eventhub/internal/auth"
	"github.com/robertarktes/eventhub/internal/domain"
	"github.com/robertarktes/eventhub/internal/observability"
	"github.com/samber/lo"
)

var defaultPublicStatuses = []domain.EventStatus{domain.StatusUpcoming, domain.StatusOngoing}

type Service struct {
	store    Store
	cache    ListingCache
	uploader Uploader
	loc      *time.Location
	logger   observability.Logger
}

// NewService wires the catalog. cache and uploader may be nil.
func NewService(store Store, cache ListingCache, uploader Uploader, loc *time.Location, logger observability.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, cache: cache, uploader: uploader, loc: loc, logger: logger}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Present replaces the stored status with the effective one.
func (s *Service) Present(e domain.Event, now time.Time) domain.Event {
	e.Status = domain.EffectiveStatus(e, now, s.loc)
	return e
}

func (s *Service) ListPublic(ctx context.Context, f Filter, now time.Time) ([]domain.Event, error) {
	statuses, err := statusSet(f.Statuses, defaultPublicStatuses)
	if err != nil {
		return nil, err
	}

	candidates, slot, hit := s.cachedListing(ctx, listingKey(f))
	if !hit {
		candidates, err = s.store.FindEvents(ctx, domain.EventQuery{
			OnlyListed: true,
			CategoryID: f.CategoryID,
			City:       strings.TrimSpace(f.City),
		})
		if err != nil {
			return nil, errors.Wrap(err, "find public events")
		}
		if s.cache != nil && slot != "" {
			s.cache.SetEvents(ctx, slot, candidates)
		}
	}

	return s.presentAll(candidates, now, statuses), nil
}

func (s *Service) ListAdmin(ctx context.Context, caller *auth.Identity, f Filter, now time.Time) ([]domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	statuses, err := statusSet(f.Statuses, nil)
	if err != nil {
		return nil, err
	}

	events, err := s.store.FindEvents(ctx, domain.EventQuery{
		CategoryID:  f.CategoryID,
		City:        strings.TrimSpace(f.City),
		NewestFirst: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "find admin events")
	}
	return s.presentAll(events, now, statuses), nil
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, now time.Time) ([]domain.Event, error) {
	events, err := s.store.FindEvents(ctx, domain.EventQuery{OrganizerID: &organizerID, NewestFirst: true})
	if err != nil {
		return nil, errors.Wrap(err, "find organizer events")
	}
	return s.presentAll(events, now, nil), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, now time.Time) (domain.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	return s.Present(e, now), nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Service) Create(ctx context.Context, caller *auth.Identity, in EventInput) (domain.Event, error) {
	if caller == nil {
		return domain.Event{}, domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	if !caller.HasRole(domain.RoleOrganizer, domain.RoleAdmin) {
		return domain.Event{}, domain.Errorf(domain.ErrForbidden, "Only organizers can create events")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Venue = strings.TrimSpace(in.Venue)
	if in.Title == "" || in.CategoryID == uuid.Nil || in.StartDate.IsZero() || in.EndDate.IsZero() || in.Venue == "" || in.TotalSeats <= 0 {
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "title, categoryId, startDate, endDate, venue and totalSeats are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "End date cannot be before start date")
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		return domain.Event{}, err
	}
	price, err := domain.NormalizePrice(in.IsPaid, in.Price)
	if err != nil {
		return domain.Event{}, err
	}

	banner := ""
	if in.BannerPath != "" {
		if banner, err = s.upload(ctx, in.BannerPath); err != nil {
			return domain.Event{}, err
		}
	}

	now := time.Now().UTC()
	e := domain.Event{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		CategoryID:     in.CategoryID,
		OrganizerID:    caller.UserID,
		Venue:          in.Venue,
		City:           strings.TrimSpace(in.City),
		StartDate:      in.StartDate,
		StartTime:      in.StartTime,
		EndDate:        in.EndDate,
		EndTime:        in.EndTime,
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
		IsPaid:         in.IsPaid,
		Price:          price,
		BannerImageURL: banner,
		Status:         domain.StatusUpcoming,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return domain.Event{}, errors.Wrap(err, "create event")
	}
	s.invalidate(ctx)

	s.logger.WithFields(map[string]interface{}{"event_id": e.ID, "organizer_id": e.OrganizerID}).Info("event created")
	return e, nil
}

// Update applies an owner's edit. Any change to a substantive field revokes
// approval in the same write; seat edits shift availableSeats by the delta.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id uuid.UUID, ch EventChanges) (domain.Event, error) {
	if caller == nil {
		return domain.Event{}, domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	cur, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if cur.OrganizerID != caller.UserID {
		return domain.Event{}, domain.Errorf(domain.ErrForbidden, "You can only update your own events")
	}

	var p domain.EventPatch
	substantive := false

	if ch.Title != nil {
		title := strings.TrimSpace(*ch.Title)
		if title == "" {
			return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Title cannot be empty")
		}
		if title != cur.Title {
			p.Title, substantive = &title, true
		}
	}
	if ch.Description != nil && *ch.Description != cur.Description {
		p.Description = ch.Description
	}
	if ch.CategoryID != nil && *ch.CategoryID != cur.CategoryID {
		if _, err := s.store.GetCategory(ctx, *ch.CategoryID); err != nil {
			return domain.Event{}, err
		}
		p.CategoryID, substantive = ch.CategoryID, true
	}
	if ch.Venue != nil {
		venue := strings.TrimSpace(*ch.Venue)
		if venue == "" {
			return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Venue cannot be empty")
		}
		if venue != cur.Venue {
			p.Venue, substantive = &venue, true
		}
	}
	if ch.City != nil {
		city := strings.TrimSpace(*ch.City)
		if city != cur.City {
			p.City, substantive = &city, true
		}
	}
	if ch.StartDate != nil && !ch.StartDate.Equal(cur.StartDate) {
		p.StartDate, substantive = ch.StartDate, true
	}
	if ch.StartTime != nil && *ch.StartTime != cur.StartTime {
		p.StartTime, substantive = ch.StartTime, true
	}
	if ch.EndDate != nil && !ch.EndDate.Equal(cur.EndDate) {
		p.EndDate, substantive = ch.EndDate, true
	}
	if ch.EndTime != nil && *ch.EndTime != cur.EndTime {
		p.EndTime, substantive = ch.EndTime, true
	}
	start, end := lo.FromPtrOr(p.StartDate, cur.StartDate), lo.FromPtrOr(p.EndDate, cur.EndDate)
	if end.Before(start) {
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "End date cannot be before start date")
	}

	if ch.TotalSeats != nil && *ch.TotalSeats != cur.TotalSeats {
		if *ch.TotalSeats < 0 {
			return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "totalSeats cannot be negative")
		}
		p.SeatDelta, substantive = *ch.TotalSeats-cur.TotalSeats, true
		p.SeatsFrom = cur.TotalSeats
	}

	if ch.IsPaid != nil || ch.Price != nil {
		isPaid := lo.FromPtrOr(ch.IsPaid, cur.IsPaid)
		price, err := domain.NormalizePrice(isPaid, lo.FromPtrOr(ch.Price, cur.Price))
		if err != nil {
			return domain.Event{}, err
		}
		if isPaid != cur.IsPaid {
			p.IsPaid, substantive = &isPaid, true
		}
		if price != cur.Price {
			p.Price, substantive = &price, true
		}
	}

	if ch.Status != nil {
		if !ch.Status.Valid() {
			return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Invalid status value")
		}
		if *ch.Status != cur.Status {
			p.Status = ch.Status
		}
	}

	if ch.BannerPath != "" {
		url, err := s.upload(ctx, ch.BannerPath)
		if err != nil {
			return domain.Event{}, err
		}
		p.BannerImageURL, substantive = &url, true
	}

	if substantive {
		p.IsApproved = lo.ToPtr(false)
	}
	if p.Empty() {
		return s.Present(cur, time.Now()), nil
	}

	updated, err := s.store.UpdateEvent(ctx, id, p)
	if err != nil {
		return domain.Event{}, err
	}
	s.invalidate(ctx)

	s.logger.WithFields(map[string]interface{}{"event_id": id, "reapproval": substantive, "seat_delta": p.SeatDelta}).Info("event updated")
	return s.Present(updated, time.Now()), nil
}

func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	if caller == nil {
		return domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	cur, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if cur.OrganizerID != caller.UserID {
		return domain.Errorf(domain.ErrForbidden, "You can only delete your own events")
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Approve(ctx context.Context, caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
	return s.moderate(ctx, caller, id, domain.EventPatch{IsApproved: lo.ToPtr(true)})
}

func (s *Service) Disable(ctx context.Context, caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
	return s.moderate(ctx, caller, id, domain.EventPatch{IsDisabled: lo.ToPtr(true)})
}

func (s *Service) Enable(ctx context.Context, caller *auth.Identity, id uuid.UUID) (domain.Event, error) {
	return s.moderate(ctx, caller, id, domain.EventPatch{IsDisabled: lo.ToPtr(false)})
}

func (s *Service) SetStatus(ctx context.Context, caller *auth.Identity, id uuid.UUID, status domain.EventStatus) (domain.Event, error) {
	if !status.Valid() {
		return domain.Event{}, domain.Errorf(domain.ErrInvalidArgument, "Invalid status value")
	}
	return s.moderate(ctx, caller, id, domain.EventPatch{Status: &status})
}

func (s *Service) moderate(ctx context.Context, caller *auth.Identity, id uuid.UUID, p domain.EventPatch) (domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Event{}, err
	}
	e, err := s.store.UpdateEvent(ctx, id, p)
	if err != nil {
		return domain.Event{}, err
	}
	s.invalidate(ctx)
	return s.Present(e, time.Now()), nil
}

func (s *Service) upload(ctx context.Context, path string) (string, error) {
	if s.uploader == nil {
		return "", domain.Errorf(domain.ErrInvalidArgument, "Image uploads are not enabled")
	}
	url, err := s.uploader.Upload(ctx, path, BannerFolder)
	if err != nil {
		return "", errors.Wrap(err, "upload banner")
	}
	return url, nil
}

func (s *Service) cachedListing(ctx context.Context, key string) ([]domain.Event, string, bool) {
	if s.cache == nil {
		return nil, "", false
	}
	events, slot, ok := s.cache.GetEvents(ctx, key)
	if ok {
		observability.CatalogCache.WithLabelValues("hit").Inc()
	} else {
		observability.CatalogCache.WithLabelValues("miss").Inc()
	}
	return events, slot, ok
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (s *Service) presentAll(events []domain.Event, now time.Time, statuses []domain.EventStatus) []domain.Event {
	out := lo.Map(events, func(e domain.Event, _ int) domain.Event {
		return s.Present(e, now)
	})
	if len(statuses) == 0 {
		return out
	}
	return lo.Filter(out, func(e domain.Event, _ int) bool {
		return lo.Contains(statuses, e.Status)
	})
}

func requireAdmin(caller *auth.Identity) error {
	if caller == nil {
		return domain.Errorf(domain.ErrUnauthenticated, "Not authorized")
	}
	if !caller.HasRole(domain.RoleAdmin) {
		return domain.Errorf(domain.ErrForbidden, "Admin access required")
	}
	return nil
}

func statusSet(in, def []domain.EventStatus) ([]domain.EventStatus, error) {
	if len(in) == 0 {
		return def, nil
	}
	for _, st := range in {
		if !st.Valid() {
			return nil, domain.Errorf(domain.ErrInvalidArgument, "Invalid status filter %q", string(st))
		}
	}
	return lo.Uniq(in), nil
}

func listingKey(f Filter) string {
	cat := "all"
	if f.CategoryID != nil {
		cat = f.CategoryID.String()
	}
	return cat + ":" + strings.ToLower(strings.TrimSpace(f.City))
}
