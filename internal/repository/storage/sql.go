package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// register the postgres driver with the database/sql package.
	_ "github.com/lib/pq"
	// register the sqlite driver with the database/sql package.
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type SQLStorage struct {
	Connection *sql.DB
	Driver     string
}

func NewSQLStorage(ctx context.Context, driver, dsn string) (*SQLStorage, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if driver == DriverSQLite {
		// a single connection keeps in-memory databases shared and serialises writers
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(16)
		conn.SetMaxIdleConns(8)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLStorage{Connection: conn, Driver: driver}, nil
}

// Init creates the schema when it does not exist yet.
func (that *SQLStorage) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		played     INTEGER NOT NULL DEFAULT 0,
		won        INTEGER NOT NULL DEFAULT 0,
		score      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`

	if _, err := that.Connection.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *SQLStorage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
