/*
store.go - Durable key-value contract

PURPOSE:
  The credits subsystem does not own its storage. It talks to a
  synchronous, per-user namespaced key-value store supplied by the host:
  in-memory for tests, SQLite or PostgreSQL for the server.

KEY LAYOUT:
  <entity>_<userId>, for example:
    credits_42             balance as a decimal string
    transactions_42        JSON array, newest first
    unlocked_avatars_42    JSON array of item ids
    notifications_42       JSON array, newest first
    last_daily_reward_42   "2006-01-02"
    login_streak_42        JSON {count, lastDate}
    achievements_42        JSON map id -> unlocked
    reward_counters_42     JSON map action -> count
    reward_once_42         JSON map action -> granted

  Every key carries the user id, so two users can never collide.

CONCURRENCY:
  The store is shared. Components read a key once when a session starts and
  write it back on every mutation: last writer wins, no merge. Two sessions
  for the same user can therefore lose each other's updates. See ledger.go.

IMPLEMENTATIONS:
  - credits/store/memory.go: In-memory for tests/dev
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL
*/
package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Store is the durable key-value adapter. A missing key is reported as
// ok == false, never as an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// KeyLister is implemented by stores that can enumerate their keys. Only
// operator tooling needs it; sessions never list keys.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// =============================================================================
// KEYS
// =============================================================================

const (
	EntityCredits         = "credits"
	EntityTransactions    = "transactions"
	EntityNotifications   = "notifications"
	EntityLastDailyReward = "last_daily_reward"
	EntityLoginStreak     = "login_streak"
	EntityAchievements    = "achievements"
	EntityRewardCounters  = "reward_counters"
	EntityRewardOnce      = "reward_once"
)

// Key namespaces an entity by user id.
func Key(entity, userID string) string {
	return entity + "_" + userID
}

// UserIDs lists every user with a stored balance, sorted by key.
func UserIDs(ctx context.Context, s KeyLister) ([]string, error) {
	prefix := EntityCredits + "_"
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids, nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

// LoadJSON decodes key into v. Returns ok == false if the key is absent.
func LoadJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%w: decode %s: %v", ErrCorruptState, key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it to key. Encoding and write failures are
// both reported as *StorageError.
func SaveJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Key: key, Err: err}
	}
	if err := s.Set(key, string(b)); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	return nil
}

// LoadInt reads a decimal-string integer.
func LoadInt(s Store, key string) (int, bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%w: decode %s: %v", ErrCorruptState, key, err)
	}
	return n, true, nil
}

// SaveInt writes n as a decimal string.
func SaveInt(s Store, key string, n int) error {
	if err := s.Set(key, strconv.Itoa(n)); err != nil {
		return &StorageError{Key: key, Err: err}
	}
	return nil
}
