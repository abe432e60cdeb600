// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/booksphere/internal/model"
)

// Routing keys (and queue names) for booking events.
const (
	BookingCreatedQueue   = "booking.created"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published after a booking is created or cancelled.  It
// carries enough of the event snapshot for downstream consumers to log
// or notify without querying the primary database.
type BookingEvent struct {
	Type       string      `json:"type"`
	BookingID  uint64      `json:"booking_id"`
	UserID     uint64      `json:"user_id"`
	EventID    uint64      `json:"event_id"`
	EventName  string      `json:"event_name,omitempty"`
	EventDate  string      `json:"event_date,omitempty"`
	EventVenue string      `json:"event_venue,omitempty"`
	Price      model.Price `json:"price"`
	OccurredAt string      `json:"occurred_at"`
}

func createdEvent(d model.BookingDetail, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       BookingCreatedQueue,
		BookingID:  d.ID,
		UserID:     d.UserID,
		EventID:    d.EventID,
		EventName:  d.EventName,
		EventDate:  d.EventDate.UTC().Format(time.RFC3339),
		EventVenue: d.EventVenue,
		Price:      d.EventPrice,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

func cancelledEvent(b model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       BookingCancelledQueue,
		BookingID:  b.ID,
		UserID:     b.UserID,
		EventID:    b.EventID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
