package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/planillas/internal/config"
	"github.com/dmitrijs2005/planillas/internal/storage"
	"github.com/dmitrijs2005/planillas/internal/storage/memstore"
	"github.com/dmitrijs2005/planillas/internal/storage/s3store"
	"github.com/dmitrijs2005/planillas/internal/storage/sqlstore"
)

func cfgFor(backend string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Backend = backend
	return c
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), cfgFor(config.BackendMemory))
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, s)
}

func TestOpen_SQLiteFile(t *testing.T) {
	c := cfgFor(config.BackendSQLite)
	c.SQLiteFile = filepath.Join(t.TempDir(), "profile", "scope.db")

	s, err := Open(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.IsType(t, &sqlstore.Store{}, s)

	require.NoError(t, s.Set(context.Background(), "tab", "users", []byte(`[]`)))
}

func TestOpen_PassesSettings(t *testing.T) {
	origPG, origS3 := openPostgres, openS3
	t.Cleanup(func() { openPostgres, openS3 = origPG, origS3 })

	var gotDSN string
	openPostgres = func(ctx context.Context, dsn string) (storage.Store, error) {
		gotDSN = dsn
		return memstore.New(), nil
	}
	var gotOpts s3store.Options
	openS3 = func(ctx context.Context, opts s3store.Options) (storage.Store, error) {
		gotOpts = opts
		return memstore.New(), nil
	}

	c := cfgFor(config.BackendPostgres)
	c.PostgresDSN = "postgres://u:p@db/planillas"
	_, err := Open(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/planillas", gotDSN)

	c = cfgFor(config.BackendS3)
	c.S3Bucket = "planillas"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3RootUser, c.S3RootPassword = "minioadmin", "minioadmin"
	_, err = Open(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, s3store.Options{
		Bucket:       "planillas",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		RootUser:     "minioadmin",
		RootPassword: "minioadmin",
		Prefix:       "planillas",
	}, gotOpts)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), cfgFor("floppy"))
	require.ErrorContains(t, err, `unknown backend "floppy"`)
}
