// Package localstore re-exports the local store abstractions and selects a
// backend from configuration.
package localstore

import (
	"foodie/internal/localstore/core"
)

type (
	// Driver identifies a local store backend.
	Driver = core.Driver
	// Store is the interface implemented by every backend.
	Store = core.Store
)

const (
	DriverMemory     = core.DriverMemory
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverSQLite     = core.DriverSQLite
	DriverPostgres   = core.DriverPostgres
)

// ErrNotFound is returned by Store.Get for absent keys.
var ErrNotFound = core.ErrNotFound
