// Package dbtest opens throwaway SQLite databases with the full schema
// applied.  It is imported by tests only.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booksphere/internal/database"
)

// Options returns connection options for a fresh database file inside the
// test's temporary directory.
func Options(t testing.TB) database.Options {
	t.Helper()
	return database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "booksphere.db"),
	}
}

// Open migrates a fresh database and returns a handle that is closed when
// the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	opts := Options(t)
	require.NoError(t, database.MigrateUp(opts))

	db, err := database.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
