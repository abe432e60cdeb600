package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrator opens a golang-migrate instance for the store described by o.
// It uses its own connection; closing the migrator closes that connection.
func Migrator(o Options) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations/"+o.driverName())
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	db, err := Open(o)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var m *migrate.Migrate
	switch o.driverName() {
	case DriverMySQL:
		drv, derr := migratemysql.WithInstance(db, &migratemysql.Config{})
		if derr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mysql migrate driver: %w", derr)
		}
		m, err = migrate.NewWithInstance("iofs", src, DriverMySQL, drv)
	case DriverSQLite:
		drv, derr := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if derr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite3 migrate driver: %w", derr)
		}
		m, err = migrate.NewWithInstance("iofs", src, DriverSQLite, drv)
	default:
		_ = db.Close()
		return nil, fmt.Errorf("unsupported database driver %q", o.Driver)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(o Options) error {
	m, err := Migrator(o)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(o Options, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrate down: steps must be > 0")
	}
	m, err := Migrator(o)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}
