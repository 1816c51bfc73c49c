package localstore

import (
	"context"
	"fmt"

	"foodie/internal/config"
	fsstore "foodie/internal/infra/localstore/fs"
	memorystore "foodie/internal/infra/localstore/memory"
	s3store "foodie/internal/infra/localstore/s3"
	sqlstore "foodie/internal/infra/localstore/sql"
)

// Open selects a Store implementation from the storage configuration.
// An empty driver selects the filesystem backend.
func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			KeyPrefix: cfg.S3KeyPrefix,
		})
	case DriverSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown localstore driver %s", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the S3 backend wired to an in-process fake
// transport, for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }
