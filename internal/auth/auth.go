// Package auth selects how a tab checks credentials: against the account
// directory, or against the single built-in administrator account.
package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/planillas/internal/accounts"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/session"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

// Modes accepted by New.
const (
	ModeDirectory = "directory"
	ModeFixed     = "fixed"
)

// Authenticator logs an account in. On success the session is saved.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Account, error)
}

// Registrar is implemented by authenticators that can create accounts.
type Registrar interface {
	Register(ctx context.Context, name, email, password string) (models.Account, error)
}

// LoginChecker is implemented by authenticators that check login input with
// their own rules and messages before credentials are compared.
type LoginChecker interface {
	CheckLogin(email, password string) error
}

var (
	_ LoginChecker  = (*Fixed)(nil)
	_ Authenticator = (*accounts.Directory)(nil)
	_ Registrar     = (*accounts.Directory)(nil)
	_ Authenticator = (*Fixed)(nil)
)

// New returns the authenticator for mode.
func New(mode string, scope *storage.Scope, sessions *session.Store, logger logging.Logger) (Authenticator, error) {
	switch mode {
	case ModeDirectory, "":
		return accounts.NewDirectory(scope, sessions, logger), nil
	case ModeFixed:
		return NewFixed(sessions), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// CanRegister reports whether a supports registration.
func CanRegister(a Authenticator) bool {
	_, ok := a.(Registrar)
	return ok
}
