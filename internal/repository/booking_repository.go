package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/booksphere/internal/model"
)

// BookingRepo provides persistence for bookings.  Every read that
// returns bookings to a caller takes the owning user id and applies it
// in the WHERE clause; there is no unscoped read.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// ExistsTx reports whether userID already booked eventID.
func (r *BookingRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND event_id = ?`, userID, eventID).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a booking within the scope of an existing
// transaction and populates its ID.  The (user_id, event_id) unique index
// turns a racing duplicate into ErrDuplicate; a vanished event becomes
// ErrForeignKey.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.BookingDate.IsZero() {
		b.BookingDate = now()
	}
	const q = `INSERT INTO bookings (event_id, user_id, booked_at) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.EventID, b.UserID, b.BookingDate)
	if err != nil {
		return mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

const bookingDetailSelect = `SELECT b.id, b.event_id, b.user_id, b.booked_at,
                                    e.name, e.starts_at, e.venue, e.price_cents
                             FROM bookings b
                             JOIN events e ON e.id = b.event_id`

func scanBookingDetail(row rowScanner) (model.BookingDetail, error) {
	var d model.BookingDetail
	err := row.Scan(&d.ID, &d.EventID, &d.UserID, &d.BookingDate,
		&d.EventName, &d.EventDate, &d.EventVenue, &d.EventPrice)
	if err != nil {
		return model.BookingDetail{}, err
	}
	d.BookingDate = d.BookingDate.UTC()
	d.EventDate = d.EventDate.UTC()
	return d, nil
}

// GetForUser returns one booking owned by userID.  A booking owned by
// someone else is reported exactly like a missing one.
func (r *BookingRepo) GetForUser(ctx context.Context, bookingID, userID uint64) (model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx,
		bookingDetailSelect+` WHERE b.id = ? AND b.user_id = ?`, bookingID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingDetail{}, ErrNotFound
	}
	return d, err
}

// ListByUser returns all bookings owned by userID, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.booked_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteForUser removes a booking owned by userID and returns the
// deleted row's event id.
func (r *BookingRepo) DeleteForUser(ctx context.Context, bookingID, userID uint64) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var eventID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT event_id FROM bookings WHERE id = ? AND user_id = ?`, bookingID, userID).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND user_id = ?`, bookingID, userID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return eventID, nil
}

// CountForEvent returns how many bookings reference eventID.
func (r *BookingRepo) CountForEvent(ctx context.Context, eventID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}
