package model

import "time"

// Booking links a user to an event.  The pair (UserID, EventID) is
// unique: a user books a given event at most once.
//
// Fields:
//
//	ID          – primary key identifier.
//	EventID     – booked event (deleted together with the event).
//	UserID      – owner of the booking, always the authenticated caller.
//	BookingDate – creation timestamp, never updated.
type Booking struct {
	ID          uint64    `json:"id"`
	EventID     uint64    `json:"event_id"`
	UserID      uint64    `json:"user_id"`
	BookingDate time.Time `json:"booking_date"`
}

// BookingDetail is a booking joined at read time with the event fields a
// client needs for display.  Nothing here is stored on the booking row,
// so event edits are reflected immediately.
type BookingDetail struct {
	Booking
	EventName  string    `json:"event_name"`
	EventDate  time.Time `json:"event_date"`
	EventVenue string    `json:"event_venue"`
	EventPrice Price     `json:"event_price"`
}
