package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/metrics"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/repository"
)

// BookingNotifier receives ledger changes after they are committed.
// Implementations deliver best-effort; a returned error is only logged.
type BookingNotifier interface {
	BookingCreated(ctx context.Context, b model.BookingDetail) error
	BookingCancelled(ctx context.Context, b model.Booking) error
}

// BookingService is the booking ledger.  Every operation is scoped to the
// calling principal; the owner of a new booking is always the caller.
type BookingService struct {
	log      zerolog.Logger
	events   *repository.EventRepo
	bookings *repository.BookingRepo
	notifier BookingNotifier
}

func NewBookingService(log zerolog.Logger, events *repository.EventRepo, bookings *repository.BookingRepo, notifier BookingNotifier) *BookingService {
	return &BookingService{
		log:      log.With().Str("component", "ledger").Logger(),
		events:   events,
		bookings: bookings,
		notifier: notifier,
	}
}

func alreadyBooked() *Error {
	return &Error{Kind: KindConflict, Message: "you have already booked this event", Err: ErrAlreadyBooked}
}

// CreateBooking books eventID for the principal.  The event lookup, the
// duplicate check and the insert share one transaction; the unique
// (user_id, event_id) index settles any race the check misses.
func (s *BookingService) CreateBooking(ctx context.Context, p Principal, eventID uint64) (model.BookingDetail, error) {
	const op = "ledger.CreateBooking"
	log := s.log.With().Str("op", op).Uint64("event_id", eventID).Logger()

	owner, err := ownerScope(p)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if eventID == 0 {
		return model.BookingDetail{}, validationError("invalid input", map[string]string{"event_id": "this field is required"})
	}

	tx, err := s.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return model.BookingDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.events.GetByIDTx(ctx, tx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BookingDetail{}, notFound("event not found")
		}
		return model.BookingDetail{}, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := s.bookings.ExistsTx(ctx, tx, owner, eventID)
	if err != nil {
		return model.BookingDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		metrics.BookingConflicts.Inc()
		log.Info().Uint64("user_id", owner).Msg("duplicate booking rejected")
		return model.BookingDetail{}, alreadyBooked()
	}

	b := model.Booking{EventID: eventID, UserID: owner}
	if err := s.bookings.CreateTx(ctx, tx, &b); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			metrics.BookingConflicts.Inc()
			return model.BookingDetail{}, alreadyBooked()
		case errors.Is(err, repository.ErrForeignKey):
			return model.BookingDetail{}, notFound("event not found")
		}
		log.Error().Err(err).Msg("failed to insert booking")
		return model.BookingDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.BookingDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.BookingsCreated.Inc()

	d, err := s.bookings.GetForUser(ctx, b.ID, owner)
	if err != nil {
		// committed but the event vanished before the join; report what we have
		log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("booking detail unavailable")
		d = model.BookingDetail{Booking: b}
	}
	log.Info().Uint64("booking_id", b.ID).Uint64("user_id", owner).Msg("booking created")

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, d); err != nil {
			log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("booking.created not delivered")
		}
	}
	return d, nil
}

// ListBookings returns the principal's bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, p Principal) ([]model.BookingDetail, error) {
	owner, err := ownerScope(p)
	if err != nil {
		return nil, err
	}
	out, err := s.bookings.ListByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("ledger.ListBookings: %w", err)
	}
	return out, nil
}

// GetBooking returns one of the principal's bookings.
func (s *BookingService) GetBooking(ctx context.Context, p Principal, id uint64) (model.BookingDetail, error) {
	owner, err := ownerScope(p)
	if err != nil {
		return model.BookingDetail{}, err
	}
	d, err := s.bookings.GetForUser(ctx, id, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BookingDetail{}, notFound("booking not found")
		}
		return model.BookingDetail{}, fmt.Errorf("ledger.GetBooking: %w", err)
	}
	return d, nil
}

// CancelBooking deletes one of the principal's bookings.
func (s *BookingService) CancelBooking(ctx context.Context, p Principal, id uint64) error {
	const op = "ledger.CancelBooking"
	owner, err := ownerScope(p)
	if err != nil {
		return err
	}
	eventID, err := s.bookings.DeleteForUser(ctx, id, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("booking not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.BookingsCancelled.Inc()
	s.log.Info().Str("op", op).Uint64("booking_id", id).Uint64("user_id", owner).Msg("booking cancelled")

	if s.notifier != nil {
		b := model.Booking{ID: id, EventID: eventID, UserID: owner}
		if err := s.notifier.BookingCancelled(ctx, b); err != nil {
			s.log.Warn().Err(err).Str("op", op).Uint64("booking_id", id).Msg("booking.cancelled not delivered")
		}
	}
	return nil
}
