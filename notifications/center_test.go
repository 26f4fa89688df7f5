package notifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/credits/store"
	"github.com/catbutler/credits-engine/events"
	"github.com/catbutler/credits-engine/notifications"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newAttached(t *testing.T, mem *store.Memory) (*notifications.Center, *events.Bus, *credits.User) {
	t.Helper()
	user := &credits.User{ID: "42", Authenticated: true}
	bus := events.NewBus()
	c := notifications.NewCenter(user, mem, notifications.WithClock(func() time.Time { return now }))
	c.Attach(bus)
	require.NoError(t, c.Load())
	return c, bus, user
}

// =============================================================================
// EVENT HANDLING
// =============================================================================

func TestCenter_CreditsEarned_CreatesUnreadRecord(t *testing.T) {
	// GIVEN: An attached center
	// WHEN: credits_earned{5, "Task completed"} is published
	// THEN: One unread credit_earned record, persisted

	mem := store.NewMemory()
	c, bus, _ := newAttached(t, mem)

	bus.Publish(events.CreditsEarned{Amount: 5, Description: "Task completed", NewBalance: 15})

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, notifications.TypeCreditEarned, list[0].Type)
	assert.Contains(t, list[0].Message, "+5")
	assert.Contains(t, list[0].Message, "Task completed")
	assert.False(t, list[0].Read)
	assert.Equal(t, now, list[0].Timestamp)
	assert.Equal(t, 1, c.UnreadCount())

	_, ok, _ := mem.Get("notifications_42")
	assert.True(t, ok)
}

func TestCenter_TemplatePerEvent(t *testing.T) {
	tests := []struct {
		event events.Event
		want  notifications.Type
	}{
		{events.CreditsEarned{Amount: 1, Description: "x"}, notifications.TypeCreditEarned},
		{events.CreditsSpent{Amount: 1, Description: "x"}, notifications.TypeCreditSpent},
		{events.AchievementUnlocked{ID: "a", Title: "T", Description: "D"}, notifications.TypeAchievement},
		{events.DailyLoginReward{IsFirst: true}, notifications.TypeSuccess},
		{events.LoginStreakReward{Days: 3}, notifications.TypeSuccess},
		{events.ItemUnlocked{ItemID: "i", ItemName: "Hat", Cost: 1}, notifications.TypeSuccess},
	}
	for _, tt := range tests {
		t.Run(string(tt.event.Name()), func(t *testing.T) {
			c, bus, _ := newAttached(t, store.NewMemory())
			bus.Publish(tt.event)
			require.Len(t, c.List(), 1)
			assert.Equal(t, tt.want, c.List()[0].Type)
		})
	}
}

func TestCenter_NewestFirst(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())

	bus.Publish(events.CreditsEarned{Amount: 1, Description: "first"})
	bus.Publish(events.LoginStreakReward{Days: 3})

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Login Streak!", list[0].Title)
	assert.Contains(t, list[1].Message, "first")
	assert.NotEqual(t, list[0].ID, list[1].ID)
}

func TestCenter_Detach_StopsListening(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())
	c.Detach()

	bus.Publish(events.CreditsEarned{Amount: 1, Description: "x"})
	assert.Empty(t, c.List())
	assert.Equal(t, 0, bus.SubscriberCount(events.CreditsEarnedName))
}

func TestCenter_AttachTwice_NoDuplicates(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())
	c.Attach(bus)

	bus.Publish(events.CreditsSpent{Amount: 2, Description: "x"})
	assert.Len(t, c.List(), 1)
}

func TestCenter_Unauthenticated_DropsEvents(t *testing.T) {
	c, bus, user := newAttached(t, store.NewMemory())
	user.SignOut()
	c.Reset()

	bus.Publish(events.CreditsEarned{Amount: 1, Description: "x"})
	assert.Empty(t, c.List())
	assert.ErrorIs(t, c.MarkAllRead(), credits.ErrUnauthenticated)
}

func TestCenter_OnCreateHook(t *testing.T) {
	user := &credits.User{ID: "42", Authenticated: true}
	bus := events.NewBus()
	var created []notifications.Notification
	c := notifications.NewCenter(user, store.NewMemory(),
		notifications.WithOnCreate(func(n notifications.Notification) { created = append(created, n) }))
	c.Attach(bus)

	bus.Publish(events.ItemUnlocked{ItemID: "hat", ItemName: "Hat", Cost: 3})
	require.Len(t, created, 1)
	assert.Equal(t, notifications.CategoryUnlocks, created[0].Category)
}

// =============================================================================
// READ STATE
// =============================================================================

func TestCenter_MarkRead_Idempotent(t *testing.T) {
	// GIVEN: Two unread notifications
	// WHEN: Marking one read twice
	// THEN: unread drops to 1 and stays there

	c, bus, _ := newAttached(t, store.NewMemory())
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "b"})
	id := c.List()[0].ID

	require.NoError(t, c.MarkRead(id))
	assert.Equal(t, 1, c.UnreadCount())
	require.NoError(t, c.MarkRead(id))
	assert.Equal(t, 1, c.UnreadCount())
	assert.True(t, c.List()[0].Read)
}

func TestCenter_MarkAllRead_Idempotent(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})
	bus.Publish(events.CreditsSpent{Amount: 1, Description: "b"})

	require.NoError(t, c.MarkAllRead())
	assert.Equal(t, 0, c.UnreadCount())
	require.NoError(t, c.MarkAllRead())
	assert.Equal(t, 0, c.UnreadCount())
	for _, n := range c.List() {
		assert.True(t, n.Read)
	}
}

func TestCenter_ReadNeverReverts(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})
	require.NoError(t, c.MarkAllRead())

	bus.Publish(events.CreditsEarned{Amount: 1, Description: "b"})

	list := c.List()
	assert.False(t, list[0].Read)
	assert.True(t, list[1].Read)
	assert.Equal(t, 1, c.UnreadCount())
}

func TestCenter_MarkRead_UnknownID(t *testing.T) {
	c, _, _ := newAttached(t, store.NewMemory())
	assert.ErrorIs(t, c.MarkRead("nope"), notifications.ErrNotificationNotFound)
}

// =============================================================================
// DELETE / CLEAR
// =============================================================================

func TestCenter_Delete_RecountsUnread(t *testing.T) {
	c, bus, _ := newAttached(t, store.NewMemory())
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "b"})

	require.NoError(t, c.Delete(c.List()[0].ID))

	assert.Len(t, c.List(), 1)
	assert.Equal(t, 1, c.UnreadCount())
	assert.ErrorIs(t, c.Delete("missing"), notifications.ErrNotificationNotFound)
}

func TestCenter_ClearAll_RemovesKey(t *testing.T) {
	mem := store.NewMemory()
	c, bus, _ := newAttached(t, mem)
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})

	require.NoError(t, c.ClearAll())

	assert.Empty(t, c.List())
	assert.Equal(t, 0, c.UnreadCount())
	_, ok, _ := mem.Get("notifications_42")
	assert.False(t, ok)
}

func TestCenter_PersistsAcrossSessions(t *testing.T) {
	mem := store.NewMemory()
	c, bus, _ := newAttached(t, mem)
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})
	bus.Publish(events.CreditsEarned{Amount: 1, Description: "b"})
	require.NoError(t, c.MarkRead(c.List()[1].ID))

	again, _, _ := newAttached(t, mem)
	assert.Len(t, again.List(), 2)
	assert.Equal(t, 1, again.UnreadCount())
}

func TestCenter_Notify(t *testing.T) {
	c, _, _ := newAttached(t, store.NewMemory())

	n, err := c.Notify(notifications.TypeWarning, "Heads up", "Sync failed", "⚠️", "")
	require.NoError(t, err)
	assert.Equal(t, notifications.CategoryGeneral, n.Category)
	assert.Equal(t, 1, c.UnreadCount())

	_, err = c.Notify("shout", "x", "y", "", "")
	assert.Error(t, err)
}

func TestCenter_StorageFailure_KeepsInMemory(t *testing.T) {
	mem := store.NewMemory()
	c, bus, _ := newAttached(t, mem)
	mem.FailWrites(true)

	bus.Publish(events.CreditsEarned{Amount: 1, Description: "a"})

	assert.Len(t, c.List(), 1)
	_, ok, _ := mem.Get("notifications_42")
	assert.False(t, ok)
}
