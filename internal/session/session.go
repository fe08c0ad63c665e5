// Package session keeps the "who is logged in" record of the storage scope.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

// shape mirrors models.Account with pointers so that a missing or null
// field is told apart from an empty string.
type shape struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Decode parses a stored session record. Invalid JSON, a value that is not
// an object, or a name/email/password that is missing or not a string all
// yield common.ErrStorageCorruption.
func Decode(raw []byte) (models.Account, error) {
	var s shape
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", common.ErrStorageCorruption, err)
	}
	if s.Name == nil || s.Email == nil || s.Password == nil {
		return models.Account{}, fmt.Errorf("%w: session record misses a field", common.ErrStorageCorruption)
	}
	return models.Account{Name: *s.Name, Email: *s.Email, Password: *s.Password}, nil
}

type Store struct {
	scope  *storage.Scope
	logger logging.Logger
}

func New(scope *storage.Scope, logger logging.Logger) *Store {
	return &Store{scope: scope, logger: logger}
}

// Load returns the current session. It never fails: a backend error reads
// as logged out, and a corrupt record is erased and reads as logged out.
func (s *Store) Load(ctx context.Context) (models.Account, bool) {
	raw, ok, err := s.scope.GetItem(ctx, storage.SessionKey)
	if err != nil {
		s.logger.Warn(ctx, "session read failed", "error", err)
		return models.Account{}, false
	}
	if !ok {
		return models.Account{}, false
	}

	acc, err := Decode(raw)
	if err != nil {
		s.logger.Warn(ctx, "discarding corrupt session", "error", err)
		if err := s.scope.RemoveItem(ctx, storage.SessionKey); err != nil {
			s.logger.Warn(ctx, "session cleanup failed", "error", err)
		}
		return models.Account{}, false
	}
	return acc, true
}

// Save overwrites the session with a copy of acc.
func (s *Store) Save(ctx context.Context, acc models.Account) error {
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.scope.SetItem(ctx, storage.SessionKey, raw)
}

// Clear erases the session. Clearing an absent session is not an error.
func (s *Store) Clear(ctx context.Context) error {
	return s.scope.RemoveItem(ctx, storage.SessionKey)
}

// Watch calls fn whenever another tab changes the session: with the new
// account, or with ok=false when the session was erased or holds a value
// that does not decode. The returned func stops the subscription.
func (s *Store) Watch(w *storage.Watcher, fn func(acc models.Account, ok bool)) func() {
	return w.Subscribe(storage.SessionKey, func(e storage.Event) {
		if !e.Present {
			fn(models.Account{}, false)
			return
		}
		acc, err := Decode(e.NewValue)
		if err != nil {
			s.logger.Warn(context.Background(), "another tab stored a corrupt session", "error", err)
			fn(models.Account{}, false)
			return
		}
		fn(acc, true)
	})
}
