package auth

import (
	"context"
	"unicode/utf8"

	"github.com/dmitrijs2005/planillas/internal/accounts"
	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/session"
)

// The built-in administrator account.
const (
	FixedName     = "Administrador"
	FixedEmail    = "admin@demo.com"
	FixedPassword = "admin123"

	MsgFixedInvalid = "Credenciales incorrectas. Usa " + FixedEmail + " / " + FixedPassword

	MsgFixedBadEmail      = "Correo inválido."
	MsgFixedShortPassword = "La contraseña debe tener al menos 6 caracteres."
)

// Fixed accepts exactly one account and has no directory behind it.
type Fixed struct {
	sessions *session.Store
}

func NewFixed(sessions *session.Store) *Fixed {
	return &Fixed{sessions: sessions}
}

// CheckLogin rejects a malformed email, then a password shorter than
// accounts.MinPasswordLength.
func (f *Fixed) CheckLogin(email, password string) error {
	if !accounts.ValidEmail(accounts.NormalizeEmail(email)) {
		return common.NewValidationError(MsgFixedBadEmail)
	}
	if utf8.RuneCountInString(password) < accounts.MinPasswordLength {
		return common.NewValidationError(MsgFixedShortPassword)
	}
	return nil
}

func (f *Fixed) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	if accounts.NormalizeEmail(email) != FixedEmail || password != FixedPassword {
		return models.Account{}, common.NewAuthError(MsgFixedInvalid)
	}

	acc := models.Account{Name: FixedName, Email: FixedEmail, Password: FixedPassword}
	if err := f.sessions.Save(ctx, acc); err != nil {
		return models.Account{}, err
	}
	return acc, nil
}
