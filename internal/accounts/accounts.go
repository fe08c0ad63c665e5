// Package accounts implements the account directory of the multi-account
// variant: registration and credential lookup over the "users" key of the
// storage scope.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/session"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// User-facing messages.
const (
	MsgNameRequired       = "Ingresa tu nombre."
	MsgInvalidEmail       = "Correo inválido."
	MsgPasswordTooShort   = "Mínimo 6 caracteres."
	MsgEmailTaken         = "Este correo ya está registrado."
	MsgInvalidCredentials = "Correo y/o contraseña incorrectos."
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Directory is the insertion-ordered list of registered accounts. The whole
// list is written back on every change.
type Directory struct {
	scope    *storage.Scope
	sessions *session.Store
	logger   logging.Logger

	mu sync.Mutex // serialises read-modify-write within this tab
}

func NewDirectory(scope *storage.Scope, sessions *session.Store, logger logging.Logger) *Directory {
	return &Directory{scope: scope, sessions: sessions, logger: logger}
}

// List returns every registered account. A missing or unparsable list reads
// as empty; only backend failures are returned.
func (d *Directory) List(ctx context.Context) ([]models.Account, error) {
	raw, ok, err := d.scope.GetItem(ctx, storage.AccountsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Account{}, nil
	}

	var list []models.Account
	if err := json.Unmarshal(raw, &list); err != nil {
		d.logger.Warn(ctx, "account list is corrupt, treating as empty", "error", err)
		return []models.Account{}, nil
	}
	if list == nil {
		list = []models.Account{}
	}
	return list, nil
}

// Register validates the input, appends a new account and logs it in.
// Checks run in order and the first failure is returned as a validation
// error: empty name, bad email shape, short password, email taken.
func (d *Directory) Register(ctx context.Context, name, email, password string) (models.Account, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return models.Account{}, common.NewValidationError(MsgNameRequired)
	}
	if !ValidEmail(email) {
		return models.Account{}, common.NewValidationError(MsgInvalidEmail)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return models.Account{}, common.NewValidationError(MsgPasswordTooShort)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	list, err := d.List(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	if _, taken := find(list, email); taken {
		return models.Account{}, common.NewValidationError(MsgEmailTaken)
	}

	acc := models.Account{Name: name, Email: email, Password: password}
	list = append(list, acc)

	raw, err := json.Marshal(list)
	if err != nil {
		return models.Account{}, fmt.Errorf("encode accounts: %w", err)
	}
	if err := d.scope.SetItem(ctx, storage.AccountsKey, raw); err != nil {
		return models.Account{}, fmt.Errorf("save accounts: %w", err)
	}

	if err := d.sessions.Save(ctx, acc); err != nil {
		return models.Account{}, fmt.Errorf("save session: %w", err)
	}

	d.logger.Info(ctx, "account registered", "email", email)
	return acc, nil
}

// Authenticate logs in the account whose normalised email and exact password
// match.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	email = NormalizeEmail(email)

	list, err := d.List(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("list accounts: %w", err)
	}

	acc, ok := findCredentials(list, email, password)
	if !ok {
		return models.Account{}, common.NewAuthError(MsgInvalidCredentials)
	}

	if err := d.sessions.Save(ctx, acc); err != nil {
		return models.Account{}, fmt.Errorf("save session: %w", err)
	}
	return acc, nil
}

// find matches stored emails case-insensitively, so records written with
// mixed case by other clients still count.
func find(list []models.Account, email string) (models.Account, bool) {
	for _, a := range list {
		if NormalizeEmail(a.Email) == email {
			return a, true
		}
	}
	return models.Account{}, false
}

// findCredentials returns the first record matching both email and password.
// The shared list may hold one email more than once.
func findCredentials(list []models.Account, email, password string) (models.Account, bool) {
	for _, a := range list {
		if NormalizeEmail(a.Email) == email && a.Password == password {
			return a, true
		}
	}
	return models.Account{}, false
}
