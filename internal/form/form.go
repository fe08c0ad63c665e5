// Package form drives the login/registration form: it holds the raw input,
// validates it in a fixed order, calls the authenticator, and fires the
// logged-in callback after a short cosmetic delay.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/planillas/internal/accounts"
	"github.com/dmitrijs2005/planillas/internal/auth"
	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/models"
)

type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Messages shown by the form itself. Account level messages come from the
// authenticator.
const (
	MsgLoginInvalidEmail   = "Ingresa un correo válido."
	MsgPasswordRequired    = "Ingresa tu contraseña."
	MsgPasswordMismatch    = "Las contraseñas no coinciden."
	MsgRegisterUnavailable = "El registro no está disponible."
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("form closed")

// State is what a view renders. Passwords are left out on purpose; only
// whether one was typed is exposed.
type State struct {
	Mode         Mode
	Name         string
	Email        string
	HasPassword  bool
	HasConfirm   bool
	Error        string
	Loading      bool
	ShowPassword bool
	ShowConfirm  bool
}

// Options holds the delays between a successful submit and the callback.
// Zero fires the callback right away.
type Options struct {
	LoginDelay    time.Duration
	RegisterDelay time.Duration
}

type Controller struct {
	auth    auth.Authenticator
	onLogin func(models.Account)
	opts    Options

	mu       sync.Mutex
	mode     Mode
	name     string
	email    string
	password string
	confirm  string
	errText  string
	loading  bool
	showPass bool
	showConf bool
	closed   bool
}

func New(a auth.Authenticator, onLogin func(models.Account), opts Options) *Controller {
	return &Controller{auth: a, onLogin: onLogin, opts: opts, mode: ModeLogin}
}

func (c *Controller) SetName(v string)     { c.set(&c.name, v) }
func (c *Controller) SetEmail(v string)    { c.set(&c.email, v) }
func (c *Controller) SetPassword(v string) { c.set(&c.password, v) }
func (c *Controller) SetConfirm(v string)  { c.set(&c.confirm, v) }

func (c *Controller) set(dst *string, v string) {
	c.mu.Lock()
	*dst = v
	c.mu.Unlock()
}

// TogglePassword flips visibility of the password field.
func (c *Controller) TogglePassword() {
	c.mu.Lock()
	c.showPass = !c.showPass
	c.mu.Unlock()
}

// ToggleConfirm flips visibility of the confirmation field.
func (c *Controller) ToggleConfirm() {
	c.mu.Lock()
	c.showConf = !c.showConf
	c.mu.Unlock()
}

// State returns a snapshot for rendering.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Mode:         c.mode,
		Name:         c.name,
		Email:        c.email,
		HasPassword:  c.password != "",
		HasConfirm:   c.confirm != "",
		Error:        c.errText,
		Loading:      c.loading,
		ShowPassword: c.showPass,
		ShowConfirm:  c.showConf,
	}
}

// SwitchMode changes mode and resets every field, the error text and both
// visibility toggles.
func (c *Controller) SwitchMode(m Mode) error {
	if m != ModeLogin && m != ModeRegister {
		return common.NewValidationError("unknown mode " + string(m))
	}
	if m == ModeRegister && !auth.CanRegister(c.auth) {
		return common.NewValidationError(MsgRegisterUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return common.ErrBusy
	}

	c.mode = m
	c.name, c.email, c.password, c.confirm = "", "", "", ""
	c.errText = ""
	c.showPass, c.showConf = false, false
	return nil
}

// Close marks the view as gone. A callback still waiting on its delay is
// then dropped without error.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Submit validates the current input and authenticates or registers. The
// first failing check wins; its text is kept in State().Error and the error
// is returned. On success the returned channel is closed once the callback
// has run, or has been skipped because the form was closed.
func (c *Controller) Submit(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		return nil, common.ErrBusy
	}
	c.errText = ""
	mode, name, email, password, confirm := c.mode, c.name, c.email, c.password, c.confirm
	c.loading = true
	c.mu.Unlock()

	var (
		acc   models.Account
		err   error
		delay time.Duration
	)
	if mode == ModeRegister {
		acc, err = c.register(ctx, name, email, password, confirm)
		delay = c.opts.RegisterDelay
	} else {
		acc, err = c.login(ctx, email, password)
		delay = c.opts.LoginDelay
	}

	if err != nil {
		c.mu.Lock()
		c.loading = false
		c.errText = common.Message(err)
		c.mu.Unlock()
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once
	fire := func() {
		once.Do(func() {
			defer close(done)

			c.mu.Lock()
			closed := c.closed
			c.loading = false
			c.password, c.confirm = "", ""
			c.mu.Unlock()

			if !closed && c.onLogin != nil {
				c.onLogin(acc)
			}
		})
	}

	if delay <= 0 {
		fire()
	} else {
		time.AfterFunc(delay, fire)
	}
	return done, nil
}

func (c *Controller) login(ctx context.Context, email, password string) (models.Account, error) {
	if lc, ok := c.auth.(auth.LoginChecker); ok {
		if err := lc.CheckLogin(email, password); err != nil {
			return models.Account{}, err
		}
		return c.auth.Authenticate(ctx, email, password)
	}

	if !accounts.ValidEmail(accounts.NormalizeEmail(email)) {
		return models.Account{}, common.NewValidationError(MsgLoginInvalidEmail)
	}
	if password == "" {
		return models.Account{}, common.NewValidationError(MsgPasswordRequired)
	}
	return c.auth.Authenticate(ctx, email, password)
}

func (c *Controller) register(ctx context.Context, name, email, password, confirm string) (models.Account, error) {
	r, ok := c.auth.(auth.Registrar)
	if !ok {
		return models.Account{}, common.NewValidationError(MsgRegisterUnavailable)
	}

	if strings.TrimSpace(name) == "" {
		return models.Account{}, common.NewValidationError(accounts.MsgNameRequired)
	}
	if !accounts.ValidEmail(accounts.NormalizeEmail(email)) {
		return models.Account{}, common.NewValidationError(accounts.MsgInvalidEmail)
	}
	if utf8.RuneCountInString(password) < accounts.MinPasswordLength {
		return models.Account{}, common.NewValidationError(accounts.MsgPasswordTooShort)
	}
	if password != confirm {
		return models.Account{}, common.NewValidationError(MsgPasswordMismatch)
	}
	return r.Register(ctx, name, email, password)
}
