package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/planillas/internal/storage"
	"github.com/dmitrijs2005/planillas/internal/storage/storagetest"
)

var dbCounter atomic.Int64

func memoryDSN() string {
	return fmt.Sprintf("file:scope_%d?mode=memory&cache=shared", dbCounter.Add(1))
}

func TestSQLiteStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(context.Background(), memoryDSN())
		require.NoError(t, err)
		return s
	})
}

func TestOpenFile_SharedBetweenTwoHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".planillas", "scope.db")

	tabA, err := OpenFile(ctx, path)
	require.NoError(t, err)
	defer tabA.Close()

	tabB, err := OpenFile(ctx, path)
	require.NoError(t, err)
	defer tabB.Close()

	require.NoError(t, tabA.Set(ctx, "tab-a", "sessionUser", []byte(`{"name":"Ana"}`)))

	v, err := tabB.Get(ctx, "sessionUser")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"name":"Ana"}`), v)

	changes, err := tabB.Changes(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "tab-a", changes[0].Origin)
}

func TestFileDSN(t *testing.T) {
	dsn := FileDSN("/tmp/p/scope.db")
	require.True(t, strings.HasPrefix(dsn, "file:/tmp/p/scope.db?"))
	require.Contains(t, dsn, "busy_timeout%285000%29")
	require.Contains(t, dsn, "journal_mode%28WAL%29")
}

func TestOpen_MigrationErrorClosesDB(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var got *sql.DB
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		got = db
		return errors.New("bad migration")
	}

	_, err := Open(context.Background(), memoryDSN())
	require.ErrorContains(t, err, "migration error: bad migration")
	require.NotNil(t, got)
	require.Error(t, got.Ping(), "db must be closed after a failed migration")
}

func TestStore_ClosedDBErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, memoryDSN())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, "users")
	require.ErrorContains(t, err, "failed to get scope[users]")

	require.ErrorContains(t, s.Set(ctx, "t", "users", []byte(`[]`)), "failed to set scope[users]")
	require.ErrorContains(t, s.Delete(ctx, "t", "users"), "failed to delete scope[users]")

	_, err = s.Changes(ctx, 0, 1)
	require.ErrorContains(t, err, "failed to list changes")

	_, err = s.LatestSeq(ctx)
	require.ErrorContains(t, err, "failed to read latest change")
}
