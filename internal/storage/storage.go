// Package storage models the shared key/value storage scope that every tab
// of a profile reads and writes, plus the change feed used to keep tabs in
// sync.
//
// A Store is the backend (SQLite, PostgreSQL, S3 or memory). A Scope binds a
// Store to one tab's origin id. A Watcher follows the change feed and
// delivers typed Events to subscribers of a given Key.
package storage

import (
	"context"
	"errors"
	"time"
)

// Key names a slot in the storage scope.
type Key string

const (
	// SessionKey holds the JSON session record of the logged-in account.
	SessionKey Key = "sessionUser"
	// AccountsKey holds the JSON array of registered accounts.
	AccountsKey Key = "users"
)

// Change is one entry of a Store's change feed.
type Change struct {
	Seq     int64
	Key     string
	Value   []byte
	Deleted bool
	Origin  string
	At      time.Time
}

// Store is a storage backend. Writes are last-writer-wins.
//
// Contract:
//   - Get returns (nil, nil) when the key is absent.
//   - Set and Delete record a Change tagged with origin in the same atomic
//     step as the write. Delete of an absent key still succeeds.
//   - Changes returns at most limit changes with Seq > after, ordered by Seq.
//   - LatestSeq returns the Seq of the newest change, 0 when there is none.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, origin, key string, value []byte) error
	Delete(ctx context.Context, origin, key string) error
	Changes(ctx context.Context, after int64, limit int) ([]Change, error)
	LatestSeq(ctx context.Context) (int64, error)
	Close() error
}

// ErrClosed is returned by a Store used after Close.
var ErrClosed = errors.New("storage closed")
