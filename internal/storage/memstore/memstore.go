// Package memstore is an in-process storage.Store. Tabs sharing one Store
// value behave like tabs sharing one browser profile.
package memstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/planillas/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	values  map[string][]byte
	changes []storage.Change
	closed  bool
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s *Store) Set(ctx context.Context, origin, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	s.values[key] = v
	s.record(origin, key, v, false)
	return nil
}

func (s *Store) Delete(ctx context.Context, origin, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	delete(s.values, key)
	s.record(origin, key, nil, true)
	return nil
}

func (s *Store) record(origin, key string, value []byte, deleted bool) {
	s.changes = append(s.changes, storage.Change{
		Seq:     int64(len(s.changes) + 1),
		Key:     key,
		Value:   bytes.Clone(value),
		Deleted: deleted,
		Origin:  origin,
		At:      time.Now().UTC(),
	})
}

func (s *Store) Changes(ctx context.Context, after int64, limit int) ([]storage.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	if after < 0 {
		after = 0
	}
	if after >= int64(len(s.changes)) {
		return nil, nil
	}

	tail := s.changes[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]storage.Change, len(tail))
	copy(out, tail)
	return out, nil
}

func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrClosed
	}
	return int64(len(s.changes)), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
