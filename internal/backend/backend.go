// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/planillas/internal/config"
	"github.com/dmitrijs2005/planillas/internal/storage"
	"github.com/dmitrijs2005/planillas/internal/storage/memstore"
	"github.com/dmitrijs2005/planillas/internal/storage/postgres"
	"github.com/dmitrijs2005/planillas/internal/storage/s3store"
	"github.com/dmitrijs2005/planillas/internal/storage/sqlite"
)

// openers are seams so tests need no real database or bucket.
var (
	openSQLite = func(ctx context.Context, path string) (storage.Store, error) {
		s, err := sqlite.OpenFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	openPostgres = func(ctx context.Context, dsn string) (storage.Store, error) {
		s, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	openS3 = func(ctx context.Context, opts s3store.Options) (storage.Store, error) {
		s, err := s3store.New(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
)

// Open returns the backend named by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return openSQLite(ctx, cfg.SQLiteFile)
	case config.BackendPostgres:
		return openPostgres(ctx, cfg.PostgresDSN)
	case config.BackendS3:
		return openS3(ctx, s3store.Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Prefix:       cfg.S3Prefix,
		})
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
