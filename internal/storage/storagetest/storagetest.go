// Package storagetest holds the behaviour every storage.Store backend must
// show. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/planillas/internal/logging"
	"github.com/dmitrijs2005/planillas/internal/storage"
)

// Run executes the suite. newStore must return an empty store; the suite
// closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"GetAbsentReturnsNilNil", testGetAbsent},
		{"SetThenGetAndOverwrite", testSetGetOverwrite},
		{"EmptyValueIsPresent", testEmptyValue},
		{"DeleteIsIdempotent", testDelete},
		{"ChangeFeedOrderAndContent", testChangeFeed},
		{"ChangesAfterCursorAndLimit", testChangesCursor},
		{"WatcherDeliversOtherTabsOnly", testWatcherAcrossTabs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testGetAbsent(t *testing.T, s storage.Store) {
	v, err := s.Get(context.Background(), "sessionUser")
	require.NoError(t, err)
	require.Nil(t, v)

	seq, err := s.LatestSeq(context.Background())
	require.NoError(t, err)
	require.Zero(t, seq)
}

func testSetGetOverwrite(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tab-a", "users", []byte(`[]`)))
	v, err := s.Get(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), v)

	require.NoError(t, s.Set(ctx, "tab-b", "users", []byte(`[{"name":"Ana"}]`)))
	v, err = s.Get(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, []byte(`[{"name":"Ana"}]`), v)
}

func testEmptyValue(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tab-a", "sessionUser", []byte{}))
	v, err := s.Get(ctx, "sessionUser")
	require.NoError(t, err)
	require.NotNil(t, v, "an empty stored value is still present")
	require.Empty(t, v)
}

func testDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tab-a", "sessionUser", []byte(`{}`)))
	require.NoError(t, s.Delete(ctx, "tab-a", "sessionUser"))

	v, err := s.Get(ctx, "sessionUser")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, s.Delete(ctx, "tab-a", "sessionUser"))
}

func testChangeFeed(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tab-a", "users", []byte(`[1]`)))
	require.NoError(t, s.Set(ctx, "tab-b", "sessionUser", []byte(`{"x":1}`)))
	require.NoError(t, s.Delete(ctx, "tab-a", "sessionUser"))

	changes, err := s.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	for i := 1; i < len(changes); i++ {
		assert.Greater(t, changes[i].Seq, changes[i-1].Seq, "seq must grow")
	}

	assert.Equal(t, "users", changes[0].Key)
	assert.Equal(t, []byte(`[1]`), changes[0].Value)
	assert.Equal(t, "tab-a", changes[0].Origin)
	assert.False(t, changes[0].Deleted)

	assert.Equal(t, "sessionUser", changes[1].Key)
	assert.Equal(t, "tab-b", changes[1].Origin)

	assert.Equal(t, "sessionUser", changes[2].Key)
	assert.True(t, changes[2].Deleted)
	assert.Empty(t, changes[2].Value)

	latest, err := s.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, changes[2].Seq, latest)
}

func testChangesCursor(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Set(ctx, "tab-a", "k", []byte(v)))
	}

	all, err := s.Changes(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	page, err := s.Changes(ctx, all[0].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []byte("b"), page[0].Value)
	assert.Equal(t, []byte("c"), page[1].Value)

	rest, err := s.Changes(ctx, page[1].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, []byte("d"), rest[0].Value)

	none, err := s.Changes(ctx, rest[0].Seq, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testWatcherAcrossTabs(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "tab-a", "sessionUser", []byte(`old`)))

	tabA := storage.NewScope(s, "tab-a")
	watchB := storage.NewWatcher(s, "tab-b", time.Second, logging.Discard())
	require.NoError(t, watchB.Init(ctx))

	var got []storage.Event
	unsubscribe := watchB.Subscribe(storage.SessionKey, func(e storage.Event) { got = append(got, e) })
	watchB.Subscribe(storage.AccountsKey, func(storage.Event) {})

	require.NoError(t, tabA.SetItem(ctx, storage.SessionKey, []byte(`new`)))
	require.NoError(t, tabA.SetItem(ctx, "unrelated", []byte(`x`)))
	require.NoError(t, s.Set(ctx, "tab-b", "sessionUser", []byte(`own write`)))
	require.NoError(t, tabA.RemoveItem(ctx, storage.SessionKey))

	n, err := watchB.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, got, 2, "the change made before Init and tab-b's own write are skipped")
	assert.Equal(t, storage.SessionKey, got[0].Key)
	assert.True(t, got[0].Present)
	assert.Equal(t, []byte(`new`), got[0].NewValue)
	assert.False(t, got[1].Present)

	latest, err := s.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest, watchB.Cursor())

	unsubscribe()
	require.NoError(t, tabA.SetItem(ctx, storage.SessionKey, []byte(`again`)))
	_, err = watchB.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
