//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/iliyamo/booksphere/internal/database"
)

// openMySQL starts a throwaway MySQL container and applies the schema.
// Run with: go test -tags integration ./internal/repository/...
func openMySQL(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("booksphere"),
		tcmysql.WithUsername("booksphere"),
		tcmysql.WithPassword("booksphere"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	opts := database.Options{
		Driver: database.DriverMySQL,
		User:   "booksphere",
		Pass:   "booksphere",
		Host:   host,
		Port:   port.Port(),
		Name:   "booksphere",
	}
	require.NoError(t, database.MigrateUp(opts))

	db, err := database.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMySQLRepositories(t *testing.T) {
	db := openMySQL(t)

	t.Run("users", func(t *testing.T) { exerciseUsers(t, db) })
	t.Run("tokens", func(t *testing.T) { exerciseTokens(t, db) })
	t.Run("bookings", func(t *testing.T) { exerciseBookings(t, db) })
}
