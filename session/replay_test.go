package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/credits/store"
	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/session"
	"github.com/catbutler/credits-engine/unlocks"
)

func TestReplay_WeekOfLogins(t *testing.T) {
	// GIVEN: Seven consecutive days with one task each
	// WHEN: Replaying them
	// THEN: 10 welcome + 7 daily + 3 and 6 streak bonuses + 14 task = 40,
	//       and today's daily reward is already granted

	now := day1
	mem := store.NewMemory()
	m := session.NewManager(mem, testOpts(&now)...)

	days := make([]session.Day, 7)
	for i := range days {
		days[i] = session.Day{Offset: i, Actions: []rewards.Action{rewards.ActionTaskCompleted}}
	}
	balance, err := m.Replay("demo", days)
	require.NoError(t, err)
	assert.Equal(t, 40, balance)

	require.NoError(t, m.Do("demo", func(s *session.Session) error {
		assert.Equal(t, 40, s.Ledger.Balance())
		assert.Equal(t, 7, s.Rewards.Streak().Count)
		assert.Equal(t, "2025-03-10", s.Rewards.Streak().LastDate)
		return s.Ledger.Verify()
	}))
}

func TestReplay_UnlocksAndGaps(t *testing.T) {
	// GIVEN: A gap between day 1 and day 5 and an unlock on the last day
	// WHEN: Replaying
	// THEN: the streak restarts and the unlock is debited

	now := day1
	m := session.NewManager(store.NewMemory(), testOpts(&now)...)

	balance, err := m.Replay("demo", []session.Day{
		{Offset: 0},
		{Offset: 1},
		{Offset: 5, Actions: []rewards.Action{rewards.ActionShoppingListUsed}},
		{Offset: 6, Unlocks: []string{"tabby_cat"}},
	})
	require.NoError(t, err)
	// 10 + 4 daily + 3 shopping - 5 tabby_cat
	assert.Equal(t, 12, balance)

	require.NoError(t, m.Do("demo", func(s *session.Session) error {
		assert.Equal(t, 2, s.Rewards.Streak().Count)
		assert.Equal(t, []string{"default_cat", "tabby_cat"}, s.Unlocks.Unlocked(unlocks.KindAvatar))
		return nil
	}))
}

func TestReplay_ResetsPreviousState(t *testing.T) {
	now := day1
	mem := store.NewMemory()
	m := session.NewManager(mem, testOpts(&now)...)

	require.NoError(t, m.Do("demo", func(s *session.Session) error {
		_, err := s.Rewards.Record(rewards.ActionProfileCustomized)
		return err
	}))
	assert.Equal(t, 1, m.Active())

	balance, err := m.Replay("demo", []session.Day{{Offset: 0}})
	require.NoError(t, err)
	assert.Equal(t, 11, balance, "profile bonus wiped with the old state")
	assert.Equal(t, 0, m.Active())
}

func TestManager_ResetRemovesEveryKey(t *testing.T) {
	now := day1
	mem := store.NewMemory()
	m := session.NewManager(mem, testOpts(&now)...)
	require.NoError(t, m.Do("demo", func(*session.Session) error { return nil }))
	require.NoError(t, m.Do("other", func(*session.Session) error { return nil }))
	require.NotEmpty(t, mem.Keys("credits_demo"))

	require.NoError(t, m.Reset("demo"))

	for _, prefix := range []string{"credits_demo", "transactions_demo", "notifications_demo", "unlocked_avatars_demo"} {
		assert.Empty(t, mem.Keys(prefix), prefix)
	}
	assert.NotEmpty(t, mem.Keys("credits_other"))
}

func TestReplay_NoDays(t *testing.T) {
	m := session.NewManager(store.NewMemory())
	_, err := m.Replay("demo", nil)
	assert.ErrorIs(t, err, credits.ErrInvalidAmount)
}
