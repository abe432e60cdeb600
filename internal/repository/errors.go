// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// knowing which SQL driver produced them.
package repository

import (
	"errors"
	"time"

	"github.com/iliyamo/booksphere/internal/database"
)

// ErrNotFound is returned when the requested row does not exist, or
// exists but falls outside the caller's ownership filter.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a unique index.
var ErrDuplicate = errors.New("duplicate")

// ErrForeignKey is returned when an insert references a missing row.
var ErrForeignKey = errors.New("referenced row does not exist")

// mapConstraint translates driver constraint errors into the sentinels
// above and passes every other error through unchanged.
func mapConstraint(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrForeignKey
	}
	return err
}

// now returns the current UTC time at second precision, matching what a
// DATETIME column stores.
func now() time.Time { return time.Now().UTC().Truncate(time.Second) }
