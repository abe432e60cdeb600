package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// dateLayouts are the accepted event date formats.  Values without a
// zone are taken as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseEventDate parses s in one of the accepted layouts.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// EventInput is the full set of fields for a new or replaced event.
type EventInput struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Description string       `json:"description" validate:"max=10000"`
	Category    string       `json:"category" validate:"required"`
	Date        string       `json:"date" validate:"required"`
	Venue       string       `json:"venue" validate:"required,max=255"`
	Price       *model.Price `json:"price" validate:"required"`
	Image       string       `json:"image" validate:"max=512"`
}

// EventPatch carries the fields of a partial update; nil means keep.
type EventPatch struct {
	Name        *string      `json:"name" validate:"omitnil,min=1,max=255"`
	Description *string      `json:"description" validate:"omitnil,max=10000"`
	Category    *string      `json:"category"`
	Date        *string      `json:"date"`
	Venue       *string      `json:"venue" validate:"omitnil,min=1,max=255"`
	Price       *model.Price `json:"price"`
	Image       *string      `json:"image" validate:"omitnil,max=512"`
}

func (in EventInput) patch() EventPatch {
	return EventPatch{
		Name:        &in.Name,
		Description: &in.Description,
		Category:    &in.Category,
		Date:        &in.Date,
		Venue:       &in.Venue,
		Price:       in.Price,
		Image:       &in.Image,
	}
}

// apply validates the supplied fields and copies them onto e.
func (p EventPatch) apply(e *model.Event) error {
	if err := check(p); err != nil {
		return err
	}
	fields := map[string]string{}
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
		if e.Name == "" {
			fields["name"] = "this field may not be blank"
		}
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		c := model.Category(strings.ToLower(strings.TrimSpace(*p.Category)))
		if !c.Valid() {
			fields["category"] = fmt.Sprintf("%q is not a valid choice", *p.Category)
		}
		e.Category = c
	}
	if p.Date != nil {
		t, err := ParseEventDate(*p.Date)
		if err != nil {
			fields["date"] = "date has wrong format"
		}
		e.Date = t
	}
	if p.Venue != nil {
		e.Venue = strings.TrimSpace(*p.Venue)
		if e.Venue == "" {
			fields["venue"] = "this field may not be blank"
		}
	}
	if p.Price != nil {
		if *p.Price < 0 {
			fields["price"] = "ensure this value is greater than or equal to 0"
		} else if *p.Price > model.MaxPrice {
			fields["price"] = "ensure that there are no more than 10 digits in total"
		}
		e.Price = *p.Price
	}
	if p.Image != nil {
		e.Image = strings.TrimSpace(*p.Image)
	}
	if len(fields) > 0 {
		return validationError("invalid input", fields)
	}
	return nil
}

// EventFilter holds the raw list parameters taken from the query string.
type EventFilter struct {
	Category string
	Search   string
	From     string
	To       string
	Ordering string
	Limit    int
	Offset   int
}

// EventPage is one page of the event list.
type EventPage struct {
	Items  []model.Event `json:"items"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Invalidator is told when the catalog changes so cached reads can be
// dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogService manages events.  Reads are open to everyone; every
// mutation passes the role-gate before anything is read or written.
type CatalogService struct {
	log      zerolog.Logger
	events   *repository.EventRepo
	bookings *repository.BookingRepo
	cache    Invalidator
}

func NewCatalogService(log zerolog.Logger, events *repository.EventRepo, bookings *repository.BookingRepo, cache Invalidator) *CatalogService {
	return &CatalogService{
		log:      log.With().Str("component", "catalog").Logger(),
		events:   events,
		bookings: bookings,
		cache:    cache,
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidation failed")
	}
}

// CreateEvent stores a new event owned by the calling admin.
func (s *CatalogService) CreateEvent(ctx context.Context, p Principal, in EventInput) (model.Event, error) {
	const op = "catalog.CreateEvent"
	if err := RequireRole(p, model.RoleAdmin); err != nil {
		return model.Event{}, err
	}
	if err := check(in); err != nil {
		return model.Event{}, err
	}

	var e model.Event
	if err := in.patch().apply(&e); err != nil {
		return model.Event{}, err
	}
	uid := p.UserID
	e.CreatedBy = &uid

	if err := s.events.Create(ctx, &e); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("failed to create event")
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info().Str("op", op).Uint64("event_id", e.ID).Uint64("user_id", p.UserID).Msg("event created")
	s.invalidate(ctx)
	return e, nil
}

// ReplaceEvent overwrites every mutable field of an event.
func (s *CatalogService) ReplaceEvent(ctx context.Context, p Principal, id uint64, in EventInput) (model.Event, error) {
	if err := RequireRole(p, model.RoleAdmin); err != nil {
		return model.Event{}, err
	}
	if err := check(in); err != nil {
		return model.Event{}, err
	}
	return s.UpdateEvent(ctx, p, id, in.patch())
}

// UpdateEvent changes only the fields present in patch.
func (s *CatalogService) UpdateEvent(ctx context.Context, p Principal, id uint64, patch EventPatch) (model.Event, error) {
	const op = "catalog.UpdateEvent"
	if err := RequireRole(p, model.RoleAdmin); err != nil {
		return model.Event{}, err
	}

	tx, err := s.events.DB().BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	e, err := s.events.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, notFound("event not found")
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := patch.apply(&e); err != nil {
		return model.Event{}, err
	}
	if err := s.events.UpdateTx(ctx, tx, &e); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Str("op", op).Uint64("event_id", id).Uint64("user_id", p.UserID).Msg("event updated")
	s.invalidate(ctx)
	return e, nil
}

// DeleteEvent removes an event together with its bookings.
func (s *CatalogService) DeleteEvent(ctx context.Context, p Principal, id uint64) error {
	const op = "catalog.DeleteEvent"
	if err := RequireRole(p, model.RoleAdmin); err != nil {
		return err
	}

	booked, err := s.bookings.CountForEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("event not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Str("op", op).Uint64("event_id", id).Int64("bookings_removed", booked).
		Uint64("user_id", p.UserID).Msg("event deleted")
	s.invalidate(ctx)
	return nil
}

// GetEvent returns one event.
func (s *CatalogService) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, notFound("event not found")
		}
		return model.Event{}, fmt.Errorf("catalog.GetEvent: %w", err)
	}
	return e, nil
}

// ListEvents returns a filtered, ordered page of events.
func (s *CatalogService) ListEvents(ctx context.Context, f EventFilter) (EventPage, error) {
	q, err := f.query()
	if err != nil {
		return EventPage{}, err
	}
	items, total, err := s.events.List(ctx, q)
	if err != nil {
		return EventPage{}, fmt.Errorf("catalog.ListEvents: %w", err)
	}
	return EventPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (f EventFilter) query() (repository.EventQuery, error) {
	fields := map[string]string{}
	q := repository.EventQuery{
		Search:  f.Search,
		OrderBy: strings.TrimSpace(f.Ordering),
		Limit:   f.Limit,
		Offset:  f.Offset,
	}

	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		q.Category = model.Category(c)
		if !q.Category.Valid() {
			fields["category"] = fmt.Sprintf("%q is not a valid choice", f.Category)
		}
	}
	if q.OrderBy == "" {
		q.OrderBy = "date"
	} else if !repository.ValidEventOrdering(q.OrderBy) {
		fields["ordering"] = fmt.Sprintf("%q is not a valid ordering", f.Ordering)
	}
	for name, raw := range map[string]string{"from": f.From, "to": f.To} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, err := ParseEventDate(raw)
		if err != nil {
			fields[name] = "date has wrong format"
			continue
		}
		if name == "from" {
			q.From = &t
		} else {
			q.To = &t
		}
	}

	switch {
	case q.Limit <= 0:
		q.Limit = DefaultPageSize
	case q.Limit > MaxPageSize:
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		fields["offset"] = "must be zero or greater"
	}

	if len(fields) > 0 {
		return repository.EventQuery{}, validationError("invalid query", fields)
	}
	return q, nil
}
