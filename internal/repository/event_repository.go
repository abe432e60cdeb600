package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/booksphere/internal/model"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// EventQuery defines filters and pagination for listing events.  OrderBy
// must be one of the keys of eventOrderings; anything else falls back to
// ascending date.
type EventQuery struct {
	Category model.Category
	Search   string
	From     *time.Time
	To       *time.Time
	OrderBy  string
	Limit    int
	Offset   int
}

var eventOrderings = map[string]string{
	"date":   "starts_at ASC, id ASC",
	"-date":  "starts_at DESC, id DESC",
	"price":  "price_cents ASC, id ASC",
	"-price": "price_cents DESC, id DESC",
	"name":   "name ASC, id ASC",
	"-name":  "name DESC, id DESC",
}

// ValidEventOrdering reports whether key is a supported ordering.
func ValidEventOrdering(key string) bool {
	_, ok := eventOrderings[key]
	return ok
}

const eventColumns = "id, name, description, category, starts_at, venue, price_cents, image, created_by, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e         model.Event
		category  string
		createdBy sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &category, &e.Date, &e.Venue,
		&e.Price, &e.Image, &createdBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	e.Category = model.Category(category)
	e.Date = e.Date.UTC()
	if createdBy.Valid {
		id := uint64(createdBy.Int64)
		e.CreatedBy = &id
	}
	return e, nil
}

// Create inserts a new event and populates its ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	const q = `INSERT INTO events (name, description, category, starts_at, venue, price_cents, image, created_by, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.Name, e.Description, string(e.Category), e.Date.UTC(),
		e.Venue, e.Price.Cents(), e.Image, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	e, err := scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// UpdateTx writes every mutable column of e inside the caller's
// transaction.  The caller loads the row first, so a missing event has
// already been reported.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	e.UpdatedAt = now()
	const q = `UPDATE events SET name = ?, description = ?, category = ?, starts_at = ?, venue = ?,
	           price_cents = ?, image = ?, updated_at = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, e.Name, e.Description, string(e.Category), e.Date.UTC(),
		e.Venue, e.Price.Cents(), e.Image, e.UpdatedAt, e.ID)
	return err
}

// Delete removes an event.  Its bookings go with it through the
// ON DELETE CASCADE foreign key.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the page of events matching q and the total number of
// matches.
func (r *EventRepo) List(ctx context.Context, q EventQuery) ([]model.Event, int64, error) {
	where := []string{}
	args := []any{}

	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(q.Category))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like)
	}
	if q.From != nil {
		where = append(where, "starts_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, "starts_at <= ?")
		args = append(args, q.To.UTC())
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := eventOrderings[q.OrderBy]
	if !ok {
		order = eventOrderings["date"]
	}
	dataSQL := "SELECT " + eventColumns + " FROM events WHERE " + cond + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, q.Limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
