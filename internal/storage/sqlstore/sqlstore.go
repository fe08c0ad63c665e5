// Package sqlstore implements storage.Store on top of database/sql. The
// sqlite and postgres backends share it and differ only in how they open
// the database, which migrations they run and the placeholder dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/planillas/internal/dbx"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	getQuery = `SELECT value FROM scope WHERE key = ?`

	upsertQuery = `INSERT INTO scope (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	deleteQuery = `DELETE FROM scope WHERE key = ?`

	recordQuery = `INSERT INTO changes (key, value, deleted, origin, created_at) VALUES (?, ?, ?, ?, ?)`

	changesQuery = `SELECT seq, key, value, deleted, origin, created_at FROM changes
		WHERE seq > ? ORDER BY seq LIMIT ?`

	latestQuery = `SELECT COALESCE(MAX(seq), 0) FROM changes`
)

// now is a seam for tests.
var now = time.Now

type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
	// writeLock, when set, runs first in every write transaction. Change
	// sequence numbers must be assigned in commit order, or a watcher can
	// move its cursor past a change that has not committed yet.
	writeLock string
}

func New(db *sql.DB, dialect dbx.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// WithWriteLock sets the statement that serialises write transactions.
func (s *Store) WithWriteLock(query string) *Store {
	s.writeLock = query
	return s
}

func (s *Store) lock(ctx context.Context, tx dbx.DBTX) error {
	if s.writeLock == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, s.writeLock); err != nil {
		return fmt.Errorf("lock changes: %w", err)
	}
	return nil
}

// DB exposes the underlying handle, mainly for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) q(query string) string { return dbx.Rebind(s.dialect, query) }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.q(getQuery), key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scope[%s]: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, origin, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	ts := now().UnixNano()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.lock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(upsertQuery), key, value, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(recordQuery), key, value, false, origin, ts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set scope[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, origin, key string) error {
	ts := now().UnixNano()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.lock(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(deleteQuery), key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(recordQuery), key, nil, true, origin, ts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete scope[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Changes(ctx context.Context, after int64, limit int) ([]storage.Change, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}

	rows, err := s.db.QueryContext(ctx, s.q(changesQuery), after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var out []storage.Change
	for rows.Next() {
		var (
			c  storage.Change
			ts int64
		)
		if err := rows.Scan(&c.Seq, &c.Key, &c.Value, &c.Deleted, &c.Origin, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan change row: %w", err)
		}
		c.At = time.Unix(0, ts).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change rows: %w", err)
	}
	return out, nil
}

func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, s.q(latestQuery)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read latest change: %w", err)
	}
	return seq, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
