package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/unlocks"
)

// Day is one simulated login day of a replay.
type Day struct {
	// Offset counts days from the first replayed day.
	Offset  int
	Actions []rewards.Action
	Unlocks []string
}

// userKeys lists every store key owned by userID.
func userKeys(userID string) []string {
	keys := []string{
		credits.Key(credits.EntityCredits, userID),
		credits.Key(credits.EntityTransactions, userID),
		credits.Key(credits.EntityNotifications, userID),
		credits.Key(credits.EntityLastDailyReward, userID),
		credits.Key(credits.EntityLoginStreak, userID),
		credits.Key(credits.EntityAchievements, userID),
		credits.Key(credits.EntityRewardCounters, userID),
		credits.Key(credits.EntityRewardOnce, userID),
	}
	for _, k := range unlocks.Kinds {
		keys = append(keys, unlocks.StorageKey(k, userID))
	}
	return keys
}

// Reset closes the user's session and deletes all of their stored state.
func (m *Manager) Reset(userID string) error {
	m.Logout(userID)
	var errs []error
	for _, key := range userKeys(userID) {
		if err := m.store.Remove(key); err != nil {
			errs = append(errs, &credits.StorageError{Key: key, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Replay resets userID and plays days against the store, one session per
// day, so that the last day lands on today. Returns the final balance.
//
// Replay is for demos. Requests for userID that arrive while it runs race
// with it.
func (m *Manager) Replay(userID string, days []Day) (int, error) {
	if len(days) == 0 {
		return 0, fmt.Errorf("%w: no days to replay", credits.ErrInvalidAmount)
	}
	if err := m.Reset(userID); err != nil {
		return 0, err
	}

	cfg := newConfig(m.opts)
	today := cfg.clock().In(cfg.location)
	last := days[len(days)-1].Offset

	balance := 0
	for _, d := range days {
		at := time.Date(today.Year(), today.Month(), today.Day()-last+d.Offset, 12, 0, 0, 0, cfg.location)
		opts := append(append([]Option{}, m.opts...), WithClock(func() time.Time { return at }))

		user := &credits.User{ID: userID, Authenticated: true}
		s, err := Open(user, m.store, opts...)
		if err != nil {
			return 0, fmt.Errorf("replay day %d: %w", d.Offset, err)
		}
		err = playDay(s, d)
		balance = s.Ledger.Balance()
		s.Close()
		if err != nil {
			return balance, fmt.Errorf("replay day %d: %w", d.Offset, err)
		}
	}
	m.logger.WithField("user_id", userID).WithField("days", len(days)).Info("Replayed user history")
	return balance, nil
}

func playDay(s *Session, d Day) error {
	for _, a := range d.Actions {
		if _, err := s.Rewards.Record(a); err != nil {
			return err
		}
	}
	for _, id := range d.Unlocks {
		if err := s.Unlocks.UnlockItem(id); err != nil {
			return err
		}
	}
	return nil
}
