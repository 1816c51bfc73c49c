// Package core defines the small key/value abstraction that holds client
// side session state, such as the bearer credential slot.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete local store backend.
type Driver string

const (
	// DriverMemory keeps values in process memory (tests, one-shot runs).
	DriverMemory Driver = "memory"
	// DriverFilesystem keeps one file per key under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 keeps one object per key in an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverSQLite keeps values in a local SQLite database.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres keeps values in a Postgres table.
	DriverPostgres Driver = "postgres"
)

// Store persists string values under string keys across process runs.
type Store interface {
	// Get returns ErrNotFound when key was never written or was deleted.
	Get(ctx context.Context, key string) (string, error)
	// Put creates or overwrites key.
	Put(ctx context.Context, key, value string) error
	// Delete removes key and reports whether it existed. Auth.Forget uses
	// it to purge a credential slot.
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("localstore: key not found")
