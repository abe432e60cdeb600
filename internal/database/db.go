package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Supported values for Options.Driver.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Options describes how to reach the relational store.  MySQL is the
// production backend; SQLite serves local development and tests.
type Options struct {
	Driver string // mysql | sqlite3
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	Path   string // sqlite3 only: database file
}

// DSN renders the driver specific data source name.
func (o Options) DSN() (string, error) {
	switch o.Driver {
	case DriverMySQL, "":
		auth := o.User
		if o.Pass != "" {
			auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, o.Host, o.Port, o.Name), nil
	case DriverSQLite:
		if o.Path == "" {
			return "", fmt.Errorf("sqlite3: empty database path")
		}
		// foreign keys are off by default in SQLite; cascades depend on them.
		// BEGIN IMMEDIATE serializes writers so the busy timeout applies.
		q := url.Values{}
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", "5000")
		q.Set("_txlock", "immediate")
		return "file:" + o.Path + "?" + q.Encode(), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", o.Driver)
}

func (o Options) driverName() string {
	if o.Driver == "" {
		return DriverMySQL
	}
	return o.Driver
}

// Open connects to the configured store and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	dsn, err := o.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(o.driverName(), dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
