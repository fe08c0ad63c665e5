// Package cli is the terminal client. One running App plays the part of one
// browser tab: it shares the storage scope with every other App pointed at
// the same backend and follows their changes.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/planillas/internal/auth"
	"github.com/dmitrijs2005/planillas/internal/backend"
	"github.com/dmitrijs2005/planillas/internal/config"
	"github.com/dmitrijs2005/planillas/internal/form"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/session"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    storage.Store
	origin   string
	watcher  *storage.Watcher
	sessions *session.Store
	auth     auth.Authenticator
	reader   *bufio.Reader
	out      io.Writer

	mu   sync.Mutex
	user *models.Account
}

// NewApp opens the configured backend and wires a tab on top of it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := backend.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", c.Backend, err)
	}

	app, err := newApp(store, c, logger, os.Stdin, os.Stdout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(store storage.Store, c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	origin := uuid.New().String()
	logger = logger.With("tab", origin)

	scope := storage.NewScope(store, origin)
	sessions := session.New(scope, logger)

	a, err := auth.New(c.AuthMode, scope, sessions, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   c,
		logger:   logger,
		store:    store,
		origin:   origin,
		watcher:  storage.NewWatcher(store, origin, c.SyncInterval, logger),
		sessions: sessions,
		auth:     a,
		reader:   bufio.NewReader(in),
		out:      out,
	}, nil
}

// Run restores the session, starts following other tabs and serves the
// REPL until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.watcher.Init(ctx); err != nil {
		return fmt.Errorf("start sync: %w", err)
	}
	stop := a.sessions.Watch(a.watcher, a.onSessionChange)
	defer stop()

	if acc, ok := a.sessions.Load(ctx); ok {
		a.setUser(&acc)
	}

	go a.watcher.Run(ctx)

	a.println("Gestor de Planillas (type 'help' for commands)")
	if acc, ok := a.currentUser(); ok {
		renderDashboard(a.out, acc)
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases the backend.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) isLoggedIn() bool {
	_, ok := a.currentUser()
	return ok
}

func (a *App) currentUser() (models.Account, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return models.Account{}, false
	}
	return *a.user, true
}

func (a *App) setUser(acc *models.Account) {
	a.mu.Lock()
	a.user = acc
	a.mu.Unlock()
}

func (a *App) status() string {
	if acc, ok := a.currentUser(); ok {
		return "(" + acc.Email + ")"
	}
	return "(sin sesión)"
}

// sync applies pending changes from other tabs.
func (a *App) sync(ctx context.Context) {
	if _, err := a.watcher.Poll(ctx); err != nil {
		a.logger.Warn(ctx, "storage sync failed", "error", err)
	}
}

// onSessionChange mirrors another tab's login or logout into this tab.
func (a *App) onSessionChange(acc models.Account, ok bool) {
	a.mu.Lock()
	prev := a.user
	if ok {
		a.user = &acc
	} else {
		a.user = nil
	}
	a.mu.Unlock()

	switch {
	case !ok && prev != nil:
		a.println("La sesión se cerró en otra pestaña.")
	case ok && (prev == nil || *prev != acc):
		a.println("Sesión iniciada en otra pestaña como " + acc.Email + ".")
	}
}

func (a *App) formOptions() form.Options {
	return form.Options{LoginDelay: a.config.LoginDelay, RegisterDelay: a.config.RegisterDelay}
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}
