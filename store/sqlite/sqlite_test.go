package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSetRemove(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("credits_1")
	require.NoError(t, err)
	assert.False(t, ok, "missing key is not an error")

	require.NoError(t, s.Set("credits_1", "10"))
	v, ok, err := s.Get("credits_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", v)

	require.NoError(t, s.Set("credits_1", "12"))
	v, _, _ = s.Get("credits_1")
	assert.Equal(t, "12", v, "set is an upsert")

	require.NoError(t, s.Remove("credits_1"))
	_, ok, _ = s.Get("credits_1")
	assert.False(t, ok)

	assert.NoError(t, s.Remove("credits_1"), "removing a missing key is fine")
}

func TestStore_Keys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set("credits_2", "1"))
	require.NoError(t, s.Set("credits_1", "1"))
	require.NoError(t, s.Set("transactions_1", "[]"))

	keys, err := s.Keys(ctx, "credits_")
	require.NoError(t, err)
	assert.Equal(t, []string{"credits_1", "credits_2"}, keys)

	keys, err = s.Keys(ctx, "nothing_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_UserIDs(t *testing.T) {
	// GIVEN: Two users who each opened a session
	// WHEN: Listing users from the store
	// THEN: Both ids come back, and keys of other entities are ignored

	s := newTestStore(t)
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"bob", "alice"} {
		_, err := session.Open(&credits.User{ID: id, Authenticated: true}, s,
			session.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
	}

	ids, err := credits.UserIDs(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func TestStore_SurvivesReopen(t *testing.T) {
	// GIVEN: A session that earned credits on a file-backed store
	// WHEN: The database is closed and reopened
	// THEN: A new session sees the same ledger

	path := filepath.Join(t.TempDir(), "catbutler.db")
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	opts := []session.Option{session.WithClock(func() time.Time { return now })}

	s, err := New(path)
	require.NoError(t, err)
	sess, err := session.Open(&credits.User{ID: "7", Authenticated: true}, s, opts...)
	require.NoError(t, err)
	_, err = sess.Rewards.Record("shopping_list_used")
	require.NoError(t, err)
	require.Equal(t, 14, sess.Ledger.Balance())
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	sess, err = session.Open(&credits.User{ID: "7", Authenticated: true}, s, opts...)
	require.NoError(t, err)

	assert.Equal(t, 14, sess.Ledger.Balance())
	assert.Len(t, sess.Ledger.Transactions(), 3)
	assert.NoError(t, sess.Ledger.Verify())
}
