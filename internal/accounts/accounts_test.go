package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/planillas/internal/common"
	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/models"
	"github.com/dmitrijs2005/planillas/internal/session"
	"github.com/dmitrijs2005/planillas/internal/storage"
	"github.com/dmitrijs2005/planillas/internal/storage/memstore"
)

type fixture struct {
	dir      *Directory
	sessions *session.Store
	scope    *storage.Scope
}

func newFixture(st storage.Store) fixture {
	scope := storage.NewScope(st, "tab-a")
	sessions := session.New(scope, logging.Discard())
	return fixture{
		dir:      NewDirectory(scope, sessions, logging.Discard()),
		sessions: sessions,
		scope:    scope,
	}
}

func TestAnaRuizScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())

	acc, err := f.dir.Register(ctx, "Ana Ruiz", "ANA@Demo.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@demo.com", acc.Email)

	list, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Account{acc}, list)

	sess, ok := f.sessions.Load(ctx)
	require.True(t, ok, "registration logs the account in")
	assert.Equal(t, acc, sess)

	require.NoError(t, f.sessions.Clear(ctx))

	got, err := f.dir.Authenticate(ctx, "ana@demo.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, acc, got)

	sess, ok = f.sessions.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, acc, sess)

	_, err = f.dir.Authenticate(ctx, "ana@demo.com", "wrong")
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Equal(t, MsgInvalidCredentials, common.Message(err))
}

func TestRegister_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())
	_, err := f.dir.Register(ctx, "Ana", "ana@demo.com", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name, email, password string
		want                  string
	}{
		{"  ", "not-an-email", "x", MsgNameRequired},
		{"Luis", "not-an-email", "x", MsgInvalidEmail},
		{"Luis", "luis@demo", "secret1", MsgInvalidEmail},
		{"Luis", "luis @demo.com", "secret1", MsgInvalidEmail},
		{"Luis", "luis@demo.com", "12345", MsgPasswordTooShort},
		{"Luis", "ANA@DEMO.COM", "12345", MsgPasswordTooShort},
		{"Luis", " Ana@Demo.com ", "otherpw", MsgEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.email, func(t *testing.T) {
			_, err := f.dir.Register(ctx, tt.name, tt.email, tt.password)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, tt.want, common.Message(err))
		})
	}

	list, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "failed registrations do not touch the directory")
}

func TestRegister_AppendsInOrderAndTrimsName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())

	a, err := f.dir.Register(ctx, "  Ana Ruiz ", "ana@demo.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", a.Name)

	b, err := f.dir.Register(ctx, "Luis", "luis@demo.com", "ñandú1")
	require.NoError(t, err)

	list, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Account{a, b}, list)

	sess, ok := f.sessions.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, b, sess, "the newest registration owns the session")
}

func TestAuthenticate_EmailCaseDoesNotMatter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())
	_, err := f.dir.Register(ctx, "Ana", "ana@demo.com", "secret1")
	require.NoError(t, err)

	for _, email := range []string{"ana@DEMO.COM", " Ana@Demo.Com", "ANA@demo.com"} {
		_, err := f.dir.Authenticate(ctx, email, "secret1")
		assert.NoError(t, err, email)
	}

	_, err = f.dir.Authenticate(ctx, "ana@demo.com", "SECRET1")
	require.ErrorIs(t, err, common.ErrAuth, "passwords are case-sensitive")

	_, err = f.dir.Authenticate(ctx, "nobody@demo.com", "secret1")
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestAuthenticate_DuplicateEmailMatchesEitherPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())
	raw := `[{"name":"A","email":"ana@demo.com","password":"first1"},` +
		`{"name":"B","email":"ana@demo.com","password":"second2"}]`
	require.NoError(t, f.scope.SetItem(ctx, storage.AccountsKey, []byte(raw)))

	acc, err := f.dir.Authenticate(ctx, "ana@demo.com", "second2")
	require.NoError(t, err)
	assert.Equal(t, "B", acc.Name)

	got, ok := f.sessions.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, models.Account{Name: "B", Email: "ana@demo.com", Password: "second2"}, got)

	acc, err = f.dir.Authenticate(ctx, "ANA@demo.com", "first1")
	require.NoError(t, err)
	assert.Equal(t, "A", acc.Name)

	_, err = f.dir.Authenticate(ctx, "ana@demo.com", "third3")
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestList_MissingOrCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(memstore.New())

	list, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, raw := range []string{`{oops`, `{"name":"x"}`, `null`, ``} {
		require.NoError(t, f.scope.SetItem(ctx, storage.AccountsKey, []byte(raw)))
		list, err = f.dir.List(ctx)
		require.NoError(t, err, raw)
		assert.NotNil(t, list)
		assert.Empty(t, list, raw)
	}

	_, err = f.dir.Register(ctx, "Ana", "ana@demo.com", "secret1")
	require.NoError(t, err, "a corrupt list is replaced on the next registration")
	list, err = f.dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

type brokenStore struct{ storage.Store }

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }

func TestBackendErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(brokenStore{memstore.New()})

	_, err := f.dir.List(ctx)
	require.ErrorContains(t, err, "disk gone")

	_, err = f.dir.Register(ctx, "Ana", "ana@demo.com", "secret1")
	require.ErrorContains(t, err, "list accounts")

	_, err = f.dir.Authenticate(ctx, "ana@demo.com", "secret1")
	require.ErrorContains(t, err, "list accounts")
	assert.NotErrorIs(t, err, common.ErrAuth)
}

func TestDirectoryIsSharedAcrossTabs(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	tabA := newFixture(st)
	tabB := newFixture(st)

	_, err := tabA.dir.Register(ctx, "Ana", "ana@demo.com", "secret1")
	require.NoError(t, err)

	_, err = tabB.dir.Register(ctx, "Otra Ana", "Ana@demo.com", "secret2")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = tabB.dir.Authenticate(ctx, "ana@demo.com", "secret1")
	require.NoError(t, err)
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "ana.ruiz+tag@demo.com.pe", "x@y.z"}
	invalid := []string{"", "a@b", "@b.co", "a@.co.", "a b@c.de", "a@@b.co", "a@b.", "a@b c.de"}

	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@demo.com", NormalizeEmail("  ANA@Demo.com\t"))
}
