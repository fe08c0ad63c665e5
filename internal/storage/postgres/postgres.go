// Package postgres opens the PostgreSQL storage backend. A shared database
// lets tabs on different machines see one storage scope.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/planillas/internal/dbx"
	migrations "github.com/dmitrijs2005/planillas/internal/migrations/postgres"
	"github.com/dmitrijs2005/planillas/internal/storage/sqlstore"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// writeLockQuery serialises writers so BIGSERIAL values in changes are
// handed out in commit order. The lock is released when the transaction ends.
const writeLockQuery = `SELECT pg_advisory_xact_lock(727160)`

// New wraps an already migrated connection.
func New(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, dbx.Dollar).WithWriteLock(writeLockQuery)
}

// Open connects with the pgx driver, checks the connection and migrates.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return New(db), nil
}
