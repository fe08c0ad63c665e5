package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/planillas/internal/config"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/storage"
	"github.com/dmitrijs2005/planillas/internal/storage/memstore"
)

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(mode string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Backend = config.BackendMemory
	c.AuthMode = mode
	c.LoginDelay, c.RegisterDelay = 0, 0
	c.SyncInterval = time.Hour
	return c
}

func pipedStdin(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func newTab(t *testing.T, st storage.Store, mode, input string) (*App, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	a, err := newApp(st, testConfig(mode), logging.Discard(), strings.NewReader(input), out)
	require.NoError(t, err)
	require.NoError(t, a.watcher.Init(context.Background()))
	a.sessions.Watch(a.watcher, a.onSessionChange)
	return a, out
}

func TestApp_RegisterLogsInAndOtherTabFollows(t *testing.T) {
	pipedStdin(t)
	ctx := context.Background()
	st := memstore.New()

	tabA, outA := newTab(t, st, config.AuthDirectory, "Ana Ruiz\nANA@Demo.com\nsecret1\nsecret1\n")
	tabB, outB := newTab(t, st, config.AuthDirectory, "")

	require.NoError(t, tabA.Register(ctx))
	acc, ok := tabA.currentUser()
	require.True(t, ok)
	assert.Equal(t, models.Account{Name: "Ana Ruiz", Email: "ana@demo.com", Password: "secret1"}, acc)
	assert.Contains(t, outA.String(), "Hola Ana, ¡que tengas un gran día de trabajo!")

	assert.False(t, tabB.isLoggedIn())
	tabB.sync(ctx)
	assert.True(t, tabB.isLoggedIn(), "a login in another tab logs this tab in")
	assert.Contains(t, outB.String(), "Sesión iniciada en otra pestaña como ana@demo.com.")

	require.NoError(t, tabA.Logout(ctx))
	assert.False(t, tabA.isLoggedIn())
	tabB.sync(ctx)
	assert.False(t, tabB.isLoggedIn())
	assert.Contains(t, outB.String(), "La sesión se cerró en otra pestaña.")

	tabA.sync(ctx)
	assert.NotContains(t, outA.String(), "otra pestaña", "a tab never hears its own writes")
}

func TestApp_LoginErrorsAreShown(t *testing.T) {
	pipedStdin(t)
	ctx := context.Background()

	a, out := newTab(t, memstore.New(), config.AuthDirectory, "nobody@demo.com\nsecret1\nbad\n\n")

	require.Error(t, a.Login(ctx))
	assert.Contains(t, out.String(), "Correo y/o contraseña incorrectos.")

	require.Error(t, a.Login(ctx))
	assert.Contains(t, out.String(), "Ingresa un correo válido.")
	assert.False(t, a.isLoggedIn())
}

func TestApp_RegisterUnavailableInFixedMode(t *testing.T) {
	a, out := newTab(t, memstore.New(), config.AuthFixed, "")

	require.Error(t, a.Register(context.Background()))
	assert.Contains(t, out.String(), "El registro no está disponible.")
}

func TestApp_RunFixedSession(t *testing.T) {
	pipedStdin(t)
	lines := capturePrintln(t)

	input := "login\nadmin@demo.com\nadmin123\nwhoami\nlogout\nwhoami\nexit\n"
	out := &syncBuffer{}
	a, err := newApp(memstore.New(), testConfig(config.AuthFixed), logging.Discard(), strings.NewReader(input), out)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Gestor de Planillas (type 'help' for commands)")
	assert.Contains(t, text, "Hola Administrador, ¡que tengas un gran día de trabajo!")
	assert.Contains(t, text, "Administrador <admin@demo.com> [administrador]")
	assert.Contains(t, text, "Sesión cerrada.")
	assert.Contains(t, *lines, "Inicia sesión primero.")
	assert.Contains(t, *lines, "planillas (admin@demo.com)> ")
	assert.False(t, a.isLoggedIn())
}

func TestApp_RunRestoresSessionAndDropsCorruptOne(t *testing.T) {
	capturePrintln(t)
	ctx := context.Background()

	st := memstore.New()
	require.NoError(t, st.Set(ctx, "other", string(storage.SessionKey),
		[]byte(`{"name":"  ","email":"ana@demo.com","password":"secret1"}`)))

	out := &syncBuffer{}
	a, err := newApp(st, testConfig(config.AuthDirectory), logging.Discard(), strings.NewReader("exit\n"), out)
	require.NoError(t, err)
	require.NoError(t, a.Run(ctx))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Hola usuario, ¡que tengas un gran día de trabajo!")

	require.NoError(t, st.Set(ctx, "other", string(storage.SessionKey), []byte(`{"name":1}`)))
	a, err = newApp(st, testConfig(config.AuthDirectory), logging.Discard(), strings.NewReader("exit\n"), &syncBuffer{})
	require.NoError(t, err)
	require.NoError(t, a.Run(ctx))
	assert.False(t, a.isLoggedIn())

	v, err := st.Get(ctx, string(storage.SessionKey))
	require.NoError(t, err)
	assert.Nil(t, v, "the corrupt session is erased")
}

func TestApp_StatusAndHome(t *testing.T) {
	a, out := newTab(t, memstore.New(), config.AuthDirectory, "")
	assert.Equal(t, "(sin sesión)", a.status())
	require.Error(t, a.Home(context.Background()))

	a.setUser(&models.Account{Name: "Luis Pérez", Email: "luis@demo.com"})
	assert.Equal(t, "(luis@demo.com)", a.status())
	require.NoError(t, a.Home(context.Background()))
	assert.Contains(t, out.String(), "Hola Luis,")
	assert.Contains(t, out.String(), "Descarga de documentos procesados")
}

func TestNewApp_UnknownAuthMode(t *testing.T) {
	_, err := newApp(memstore.New(), testConfig("ldap"), logging.Discard(), strings.NewReader(""), &syncBuffer{})
	require.ErrorContains(t, err, "unknown auth mode")
}

func TestNewApp_OpensConfiguredBackend(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(config.AuthDirectory), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	c := testConfig(config.AuthDirectory)
	c.Backend = "floppy"
	_, err = NewApp(context.Background(), c, logging.Discard())
	require.ErrorContains(t, err, "open floppy backend")
}
