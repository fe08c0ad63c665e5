package storage

import (
	"context"
	"fmt"
)

// Scope is one tab's view of the shared storage. Every write it makes is
// tagged with the tab's origin so that the tab's own Watcher can skip it.
type Scope struct {
	store  Store
	origin string
}

func NewScope(store Store, origin string) *Scope {
	return &Scope{store: store, origin: origin}
}

// Origin returns the id of the tab owning the scope.
func (s *Scope) Origin() string { return s.origin }

// GetItem returns the raw value stored under key and whether it exists.
func (s *Scope) GetItem(ctx context.Context, key Key) ([]byte, bool, error) {
	v, err := s.store.Get(ctx, string(key))
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, v != nil, nil
}

// SetItem overwrites the value stored under key.
func (s *Scope) SetItem(ctx context.Context, key Key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.store.Set(ctx, s.origin, string(key), value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// RemoveItem erases key. Removing an absent key is not an error.
func (s *Scope) RemoveItem(ctx context.Context, key Key) error {
	if err := s.store.Delete(ctx, s.origin, string(key)); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
