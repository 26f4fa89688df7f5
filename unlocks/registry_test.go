package unlocks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/credits/store"
	"github.com/catbutler/credits-engine/events"
	"github.com/catbutler/credits-engine/unlocks"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	mem      *store.Memory
	user     *credits.User
	ledger   *credits.Ledger
	registry *unlocks.Registry
	seen     []events.Event
}

// newFixture loads a user with the given starting balance.
func newFixture(t *testing.T, mem *store.Memory, balance int) *fixture {
	t.Helper()
	f := &fixture{mem: mem, user: &credits.User{ID: "9", Authenticated: true}}
	bus := events.NewBus()
	bus.SubscribeAll(func(e events.Event) { f.seen = append(f.seen, e) })

	f.ledger = credits.NewLedger(f.user, mem, bus, credits.WithWelcomeBonus(balance))
	require.NoError(t, f.ledger.Load())
	f.registry = unlocks.NewRegistry(f.user, f.ledger, mem, bus)
	require.NoError(t, f.registry.Load())
	return f
}

// =============================================================================
// LOAD
// =============================================================================

func TestRegistry_FirstLoad_SeedsDefaults(t *testing.T) {
	// GIVEN: A user with no stored unlocks
	// WHEN: Loading the registry
	// THEN: Free defaults are owned and persisted per kind

	mem := store.NewMemory()
	f := newFixture(t, mem, 10)

	assert.True(t, f.registry.IsUnlocked("default_cat"))
	assert.True(t, f.registry.IsUnlocked("light"))
	assert.True(t, f.registry.IsUnlocked("dark"))
	assert.True(t, f.registry.IsUnlocked("none"))
	assert.False(t, f.registry.IsUnlocked("special_avatar"))

	raw, ok, err := mem.Get("unlocked_avatars_9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["default_cat"]`, raw)

	raw, _, _ = mem.Get("unlocked_themes_9")
	assert.JSONEq(t, `["light","dark"]`, raw)

	_, ok, _ = mem.Get("unlocked_items_9")
	assert.False(t, ok, "no defaults, nothing written")
}

func TestRegistry_Load_KeepsStoredSet(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set("unlocked_avatars_9", `["default_cat","black_cat"]`))

	f := newFixture(t, mem, 0)

	assert.True(t, f.registry.IsUnlocked("black_cat"))
	assert.Equal(t, []string{"default_cat", "black_cat"}, f.registry.Unlocked(unlocks.KindAvatar))
}

func TestRegistry_Load_Corrupt(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set("unlocked_themes_9", `{nope`))

	user := &credits.User{ID: "9", Authenticated: true}
	r := unlocks.NewRegistry(user, nil, mem, nil)
	err := r.Load()
	assert.ErrorIs(t, err, credits.ErrCorruptState)
	assert.True(t, r.IsUnlocked("default_cat"), "other kinds still load")
}

// =============================================================================
// UNLOCK
// =============================================================================

func TestRegistry_Unlock_SpendsExactBalance(t *testing.T) {
	// GIVEN: balance 20
	// WHEN: Unlock("special_avatar", 20), then again
	// THEN: balance 0, unlocked; second call "already unlocked", balance 0

	f := newFixture(t, store.NewMemory(), 20)

	require.NoError(t, f.registry.Unlock("special_avatar", 20))
	assert.Equal(t, 0, f.ledger.Balance())
	assert.True(t, f.registry.IsUnlocked("special_avatar"))

	err := f.registry.Unlock("special_avatar", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, credits.ErrAlreadyUnlocked)
	assert.Contains(t, err.Error(), "already unlocked")
	assert.Equal(t, 0, f.ledger.Balance())

	tx := f.ledger.Transactions()[0]
	assert.Equal(t, -20, tx.Amount)
	assert.Equal(t, credits.TxUnlock, tx.Type)
	assert.Equal(t, "Special Avatar unlocked", tx.Description)
}

func TestRegistry_Unlock_PublishesSpentThenUnlocked(t *testing.T) {
	f := newFixture(t, store.NewMemory(), 20)

	require.NoError(t, f.registry.Unlock("ocean", 15))

	require.Len(t, f.seen, 2)
	assert.Equal(t, events.CreditsSpentName, f.seen[0].Name())
	assert.Equal(t, events.ItemUnlocked{ItemID: "ocean", ItemName: "Ocean Theme", Cost: 15}, f.seen[1])
}

func TestRegistry_Unlock_InsufficientCredits(t *testing.T) {
	// GIVEN: balance 10
	// WHEN: Unlocking a 15-credit theme
	// THEN: InsufficientCredits, nothing changes, no events

	f := newFixture(t, store.NewMemory(), 10)

	err := f.registry.Unlock("ocean", 15)
	var ic *credits.InsufficientCreditsError
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, 10, ic.Balance)
	assert.Equal(t, 15, ic.Requested)

	assert.False(t, f.registry.IsUnlocked("ocean"))
	assert.Equal(t, 10, f.ledger.Balance())
	assert.Empty(t, f.seen)
}

func TestRegistry_Unlock_ZeroCostSkipsDebit(t *testing.T) {
	f := newFixture(t, store.NewMemory(), 10)
	before := len(f.ledger.Transactions())

	require.NoError(t, f.registry.Unlock("promo_hat", 0))

	assert.True(t, f.registry.IsUnlocked("promo_hat"))
	assert.Len(t, f.ledger.Transactions(), before)
	assert.Equal(t, []string{"promo_hat"}, f.registry.Unlocked(unlocks.KindItem))
	require.Len(t, f.seen, 1)
	assert.Equal(t, events.ItemUnlockedName, f.seen[0].Name())
}

func TestRegistry_Unlock_NegativeCost(t *testing.T) {
	f := newFixture(t, store.NewMemory(), 10)
	assert.ErrorIs(t, f.registry.Unlock("tabby_cat", -1), credits.ErrInvalidAmount)
	assert.False(t, f.registry.IsUnlocked("tabby_cat"))
}

func TestRegistry_Unlock_Unauthenticated(t *testing.T) {
	f := newFixture(t, store.NewMemory(), 20)
	f.user.SignOut()

	assert.ErrorIs(t, f.registry.Unlock("tabby_cat", 5), credits.ErrUnauthenticated)
	assert.Equal(t, 20, f.ledger.Balance())
}

func TestRegistry_UnlockItem_UsesCatalogCost(t *testing.T) {
	f := newFixture(t, store.NewMemory(), 12)

	require.NoError(t, f.registry.UnlockItem("black_cat"))
	assert.Equal(t, 2, f.ledger.Balance())
}

func TestRegistry_Unlock_StorageFailureStillUnlocks(t *testing.T) {
	// GIVEN: A store that rejects writes
	// WHEN: Unlocking an affordable item
	// THEN: Debit and unlock both apply in memory; a StorageError surfaces

	mem := store.NewMemory()
	f := newFixture(t, mem, 20)
	mem.FailWrites(true)

	err := f.registry.Unlock("tabby_cat", 5)
	require.Error(t, err)
	assert.True(t, credits.IsStorageError(err))
	assert.True(t, f.registry.IsUnlocked("tabby_cat"))
	assert.Equal(t, 15, f.ledger.Balance())
}

func TestRegistry_UnlockPersistsAcrossSessions(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(t, mem, 20)
	require.NoError(t, f.registry.UnlockItem("gold_border"))

	again := newFixture(t, mem, 20)
	assert.True(t, again.registry.IsUnlocked("gold_border"))
	assert.Equal(t, 10, again.ledger.Balance())
	assert.Equal(t, []string{"none", "gold_border"}, again.registry.Unlocked(unlocks.KindBorder))
}

func TestRegistry_ResetClearsMemoryOnly(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(t, mem, 20)
	require.NoError(t, f.registry.UnlockItem("tabby_cat"))

	f.registry.Reset()

	assert.False(t, f.registry.IsUnlocked("tabby_cat"))
	_, ok, _ := mem.Get("unlocked_avatars_9")
	assert.True(t, ok)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalog_CostOf(t *testing.T) {
	c := unlocks.DefaultCatalog()
	assert.Equal(t, 20, c.CostOf("special_avatar"))
	assert.Equal(t, 0, c.CostOf("default_cat"))
	assert.Equal(t, 0, c.CostOf("not_in_catalog"))
	assert.Equal(t, unlocks.KindItem, c.KindOf("not_in_catalog"))
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		items []unlocks.Item
		want  error
	}{
		{"empty id", []unlocks.Item{{Kind: unlocks.KindAvatar}}, unlocks.ErrInvalidItem},
		{"bad kind", []unlocks.Item{{ID: "x", Kind: "hat"}}, unlocks.ErrInvalidItem},
		{"negative", []unlocks.Item{{ID: "x", Kind: unlocks.KindTheme, Cost: -1}}, unlocks.ErrInvalidItem},
		{"paid default", []unlocks.Item{{ID: "x", Kind: unlocks.KindTheme, Cost: 1, Default: true}}, unlocks.ErrInvalidItem},
		{"duplicate", []unlocks.Item{
			{ID: "x", Kind: unlocks.KindTheme},
			{ID: "x", Kind: unlocks.KindBorder},
		}, unlocks.ErrDuplicateItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unlocks.NewCatalog(tt.items)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
