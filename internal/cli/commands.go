package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/planillas/internal/auth"
	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/form"
	"github.com/dmitrijs2005/planillas/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for email and password and submits the login form. The
// password bytes are wiped before returning.
func (a *App) Login(ctx context.Context) error {
	ctl := form.New(a.auth, a.handleLogin, a.formOptions())
	defer ctl.Close()

	email, err := getSimpleText(a.reader, "Correo electrónico", a.out)
	if err != nil {
		return err
	}
	ctl.SetEmail(email)

	password, err := getPassword(a.reader, "Contraseña", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	ctl.SetPassword(string(password))

	return a.submit(ctx, ctl)
}

// Register prompts for name, email, password and confirmation and submits
// the registration form.
func (a *App) Register(ctx context.Context) error {
	ctl := form.New(a.auth, a.handleLogin, a.formOptions())
	defer ctl.Close()

	if err := ctl.SwitchMode(form.ModeRegister); err != nil {
		a.println(common.Message(err))
		return err
	}

	name, err := getSimpleText(a.reader, "Nombre completo", a.out)
	if err != nil {
		return err
	}
	ctl.SetName(name)

	email, err := getSimpleText(a.reader, "Correo electrónico", a.out)
	if err != nil {
		return err
	}
	ctl.SetEmail(email)

	password, err := getPassword(a.reader, "Contraseña", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	ctl.SetPassword(string(password))

	confirm, err := getPassword(a.reader, "Confirmar contraseña", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	ctl.SetConfirm(string(confirm))

	return a.submit(ctx, ctl)
}

func (a *App) submit(ctx context.Context, ctl *form.Controller) error {
	done, err := ctl.Submit(ctx)
	if err != nil {
		if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrAuth) {
			a.println(ctl.State().Error)
		} else {
			a.logger.Error(ctx, "submit failed", "error", err)
			a.println("No se pudo completar la operación.")
		}
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleLogin is the form's logged-in callback.
func (a *App) handleLogin(acc models.Account) {
	a.setUser(&acc)
	a.logger.Info(context.Background(), "logged in", "email", acc.Email)
	renderDashboard(a.out, acc)
}

// Logout clears the session for every tab of the scope.
func (a *App) Logout(ctx context.Context) error {
	err := a.sessions.Clear(ctx)
	a.setUser(nil)
	if err != nil {
		a.logger.Error(ctx, "logout failed", "error", err)
		return err
	}
	a.println("Sesión cerrada.")
	return nil
}

// Home renders the dashboard of the current account.
func (a *App) Home(ctx context.Context) error {
	acc, ok := a.currentUser()
	if !ok {
		return common.ErrorNotFound
	}
	renderDashboard(a.out, acc)
	return nil
}

// WhoAmI prints the current account.
func (a *App) WhoAmI(ctx context.Context) error {
	acc, ok := a.currentUser()
	if !ok {
		return common.ErrorNotFound
	}
	mode := "directorio"
	if !auth.CanRegister(a.auth) {
		mode = "administrador"
	}
	a.println(acc.Name + " <" + acc.Email + "> [" + mode + "]")
	return nil
}
