// Package sqlite opens the default storage backend: a SQLite file in the
// local profile directory, shared by every planillas process on the machine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/planillas/internal/dbx"
	"github.com/dmitrijs2005/planillas/internal/filex"
	migrations "github.com/dmitrijs2005/planillas/internal/migrations/sqlite"
	"github.com/dmitrijs2005/planillas/internal/storage/sqlstore"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// FileDSN builds a DSN for a database file that several processes can share:
// WAL journaling and a busy timeout instead of immediate SQLITE_BUSY errors.
func FileDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// OpenFile creates the profile directory if needed and opens path.
func OpenFile(ctx context.Context, path string) (*sqlstore.Store, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, FileDSN(abs))
}

// Open opens dsn with the modernc driver and migrates it.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return sqlstore.New(db, dbx.Question), nil
}
