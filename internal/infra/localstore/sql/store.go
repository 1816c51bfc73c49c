// Package sql implements the local Store on a single key/value table through
// database/sql, with SQLite (modernc) and Postgres (pgx) dialects.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"foodie/internal/localstore/core"
)

// Dialect carries the statements that differ between engines.
type Dialect struct {
	Name   core.Driver
	Driver string
	Create string
	Select string
	Upsert string
	Delete string
}

// SQLite statements use positional ? placeholders.
var SQLite = Dialect{
	Name:   core.DriverSQLite,
	Driver: "sqlite",
	Create: `CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	Select: `SELECT value FROM slots WHERE key = ?`,
	Upsert: `INSERT INTO slots(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
	Delete: `DELETE FROM slots WHERE key = ?`,
}

// Postgres statements use numbered placeholders.
var Postgres = Dialect{
	Name:   core.DriverPostgres,
	Driver: "pgx",
	Create: `CREATE TABLE IF NOT EXISTS slots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	Select: `SELECT value FROM slots WHERE key = $1`,
	Upsert: `INSERT INTO slots(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value`,
	Delete: `DELETE FROM slots WHERE key = $1`,
}

const defaultDSN = "postgres://localhost/foodie?sslmode=disable"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists slots in the `slots` table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database and ensures the slots table exists.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, d.Create); err != nil {
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &Store{db: db, dialect: d}, nil
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "foodie.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := open(SQLite.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return New(ctx, db, SQLite)
}

// OpenPostgres connects to Postgres using dsn (falls back to a local default).
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(ctx, db, Postgres)
}

func open(driver, dsn string) (*sql.DB, error) {
	openMu.Lock()
	defer openMu.Unlock()
	return sqlOpen(driver, dsn)
}

// OverrideSQLOpen swaps the sql.Open function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

func (s *Store) Driver() core.Driver { return s.dialect.Name }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.Select, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select slot %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("upsert slot %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Delete, key)
	if err != nil {
		return false, fmt.Errorf("delete slot %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
