package rewards

import "time"

// StreakInterval is how often a streak pays out: every 3rd consecutive day.
const StreakInterval = 3

// Streak is the persisted consecutive-login counter.
type Streak struct {
	Count    int    `json:"count"`
	LastDate string `json:"lastDate"` // "2006-01-02", empty if never checked
}

// Advance applies one day-boundary check for today.
//
//	LastDate == today      -> unchanged (already processed)
//	LastDate == yesterday  -> Count+1
//	anything else          -> Count reset to 1
//
// changed is false only in the first case.
func (s Streak) Advance(today, yesterday string) (next Streak, changed bool) {
	switch s.LastDate {
	case today:
		return s, false
	case yesterday:
		return Streak{Count: s.Count + 1, LastDate: today}, true
	default:
		return Streak{Count: 1, LastDate: today}, true
	}
}

// BonusDue reports whether a streak of this length earns the bonus.
func BonusDue(count int) bool {
	return count > 0 && count%StreakInterval == 0
}

// dayKeys returns today's and yesterday's calendar-day keys in loc.
func dayKeys(now time.Time, loc *time.Location) (today, yesterday string) {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(time.DateOnly), now.AddDate(0, 0, -1).Format(time.DateOnly)
}
