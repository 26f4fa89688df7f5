/*
engine.go - Stateful reward rules on top of the ledger

PURPOSE:
  Engine turns actions into ledger credits while keeping the per-user
  reward state in step: action counters, once-per-account markers, the
  daily-login marker, the streak and achievement flags.

CRITICAL INVARIANTS:
  1. DAILY: at most one daily-login credit per user per calendar day in
     the configured location
  2. STREAK: bonus fires only when the count changes to a multiple of 3
  3. ACHIEVEMENTS: each fires at most once per user, and never grants
     credits by itself
  4. ONCE: once-per-account policies credit at most once

RE-ENTRANCY:
  Markers are written BEFORE the credit. Crediting publishes events
  synchronously, so a subscriber that calls CheckDailyLogin again sees
  today's marker and returns without crediting. The marker is also
  cached in memory so a failed marker write cannot cause a second credit
  within the same session.

STORAGE FAILURES:
  Like the ledger, the engine never rolls back. Every write is attempted,
  failures are joined into the returned error, and events still publish.

SEE ALSO:
  - policies.go: Amounts
  - streak.go: Day arithmetic
  - credits/ledger.go: Credit semantics
*/
package rewards

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/events"
)

// Outcome describes what Record did.
type Outcome struct {
	Action       Action   `json:"action"`
	Credited     int      `json:"credited"`
	Count        int      `json:"count"`
	Achievements []string `json:"achievements,omitempty"`
}

type Engine struct {
	identity credits.Identity
	ledger   Crediter
	store    credits.Store
	bus      events.Publisher
	clock    credits.Clock
	loc      *time.Location
	logger   *log.Entry

	table        Table
	achievements []Achievement

	loaded    bool
	lastDaily string
	streak    Streak
	counters  map[Action]int
	flags     map[string]bool
	once      map[Action]bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithClock(c credits.Clock) EngineOption { return func(e *Engine) { e.clock = c } }

// WithLocation sets the time zone used for calendar-day boundaries.
func WithLocation(loc *time.Location) EngineOption { return func(e *Engine) { e.loc = loc } }

func WithTable(t Table) EngineOption { return func(e *Engine) { e.table = t } }

func WithAchievements(a []Achievement) EngineOption {
	return func(e *Engine) { e.achievements = a }
}

func WithLogger(l *log.Entry) EngineOption { return func(e *Engine) { e.logger = l } }

// NewEngine wires the reward rules to a ledger. bus may be nil.
func NewEngine(id credits.Identity, ledger Crediter, store credits.Store, bus events.Publisher, opts ...EngineOption) *Engine {
	e := &Engine{
		identity:     id,
		ledger:       ledger,
		store:        store,
		bus:          bus,
		clock:        credits.SystemClock,
		loc:          time.Local,
		logger:       log.WithField("component", "rewards"),
		table:        DefaultPolicies(),
		achievements: DefaultAchievements(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.clearState()
	return e
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load reads the user's reward state. Operations load lazily, so calling
// Load is only needed to surface corrupt state early.
func (e *Engine) Load() error {
	if !e.identity.IsAuthenticated() {
		return nil
	}
	e.clearState()
	uid := e.identity.UserID()

	var errs []error
	last, _, err := e.store.Get(credits.Key(credits.EntityLastDailyReward, uid))
	if err != nil {
		errs = append(errs, err)
	}
	e.lastDaily = last

	if _, err := credits.LoadJSON(e.store, credits.Key(credits.EntityLoginStreak, uid), &e.streak); err != nil {
		errs = append(errs, err)
	}
	if _, err := credits.LoadJSON(e.store, credits.Key(credits.EntityRewardCounters, uid), &e.counters); err != nil {
		errs = append(errs, err)
	}
	if _, err := credits.LoadJSON(e.store, credits.Key(credits.EntityAchievements, uid), &e.flags); err != nil {
		errs = append(errs, err)
	}
	if _, err := credits.LoadJSON(e.store, credits.Key(credits.EntityRewardOnce, uid), &e.once); err != nil {
		errs = append(errs, err)
	}
	// A corrupt document decodes to nil; start it over rather than panic.
	if e.counters == nil {
		e.counters = make(map[Action]int)
	}
	if e.flags == nil {
		e.flags = make(map[string]bool)
	}
	if e.once == nil {
		e.once = make(map[Action]bool)
	}
	e.loaded = true
	return errors.Join(errs...)
}

// Reset drops cached state on logout. Durable state is left alone.
func (e *Engine) Reset() { e.clearState() }

func (e *Engine) clearState() {
	e.loaded = false
	e.lastDaily = ""
	e.streak = Streak{}
	e.counters = make(map[Action]int)
	e.flags = make(map[string]bool)
	e.once = make(map[Action]bool)
}

func (e *Engine) ensureLoaded() error {
	if e.loaded {
		return nil
	}
	return e.Load()
}

// =============================================================================
// ACTIONS
// =============================================================================

// Record applies the reward for one action: credit, counter increment and
// achievement evaluation. daily_login is routed to CheckDailyLogin.
func (e *Engine) Record(a Action) (Outcome, error) {
	if !e.identity.IsAuthenticated() {
		return Outcome{}, nil
	}
	p, err := e.table.Lookup(a)
	if err != nil {
		return Outcome{}, err
	}
	if a == ActionDailyLogin {
		granted, err := e.CheckDailyLogin()
		out := Outcome{Action: a, Count: e.counters[a]}
		if granted {
			out.Credited = p.Amount
		}
		return out, err
	}

	var errs []error
	if err := e.ensureLoaded(); err != nil {
		errs = append(errs, err)
	}
	uid := e.identity.UserID()
	out := Outcome{Action: a}

	if !p.Once || !e.once[a] {
		if p.Once {
			e.once[a] = true
			if err := credits.SaveJSON(e.store, credits.Key(credits.EntityRewardOnce, uid), e.once); err != nil {
				errs = append(errs, err)
			}
		}
		if err := p.Apply(e.ledger); err != nil {
			errs = append(errs, err)
		}
		out.Credited = p.Amount
	}

	out.Count = e.increment(a, &errs)
	out.Achievements = e.evaluate(a, &errs)
	return out, e.report(a, errs)
}

// CheckDailyLogin grants the daily reward unless it was already granted
// today. It then advances the streak and checks first_login.
func (e *Engine) CheckDailyLogin() (bool, error) {
	if !e.identity.IsAuthenticated() {
		return false, nil
	}
	var errs []error
	if err := e.ensureLoaded(); err != nil {
		errs = append(errs, err)
	}
	today := credits.DateKey(e.clock(), e.loc)
	if e.lastDaily == today {
		return false, errors.Join(errs...)
	}

	uid := e.identity.UserID()
	isFirst := e.lastDaily == ""
	e.lastDaily = today
	key := credits.Key(credits.EntityLastDailyReward, uid)
	if err := e.store.Set(key, today); err != nil {
		errs = append(errs, &credits.StorageError{Key: key, Err: err})
	}

	p, err := e.table.Lookup(ActionDailyLogin)
	if err != nil {
		return false, err
	}
	if err := p.Apply(e.ledger); err != nil {
		errs = append(errs, err)
	}
	e.increment(ActionDailyLogin, &errs)
	e.publish(events.DailyLoginReward{IsFirst: isFirst})

	if _, err := e.CheckStreak(); err != nil {
		errs = append(errs, err)
	}
	e.evaluate(ActionDailyLogin, &errs)
	return true, e.report(ActionDailyLogin, errs)
}

// CheckStreak advances the consecutive-login streak for today and pays the
// bonus when the new count is a multiple of StreakInterval.
func (e *Engine) CheckStreak() (Streak, error) {
	if !e.identity.IsAuthenticated() {
		return Streak{}, nil
	}
	var errs []error
	if err := e.ensureLoaded(); err != nil {
		errs = append(errs, err)
	}
	today, yesterday := dayKeys(e.clock(), e.loc)
	next, changed := e.streak.Advance(today, yesterday)
	if !changed {
		return e.streak, errors.Join(errs...)
	}
	e.streak = next
	if err := credits.SaveJSON(e.store, credits.Key(credits.EntityLoginStreak, e.identity.UserID()), next); err != nil {
		errs = append(errs, err)
	}
	if BonusDue(next.Count) {
		if err := StreakPolicy(next.Count).Apply(e.ledger); err != nil {
			errs = append(errs, err)
		}
		e.publish(events.LoginStreakReward{Days: next.Count})
	}
	return next, errors.Join(errs...)
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// CheckAchievement evaluates one achievement. When it is newly crossed the
// flag is saved, achievement_unlocked is published and the description is
// returned with true.
func (e *Engine) CheckAchievement(id string) (string, bool, error) {
	if !e.identity.IsAuthenticated() {
		return "", false, nil
	}
	var loadErr error
	if err := e.ensureLoaded(); err != nil {
		loadErr = err
	}
	for _, a := range e.achievements {
		if a.ID != id {
			continue
		}
		desc, ok := a.Check(e.counters, e.flags)
		if !ok {
			return "", false, loadErr
		}
		e.flags[a.ID] = true
		err := credits.SaveJSON(e.store, credits.Key(credits.EntityAchievements, e.identity.UserID()), e.flags)
		e.publish(events.AchievementUnlocked{ID: a.ID, Title: a.Title, Description: a.Description})
		return desc, true, errors.Join(loadErr, err)
	}
	return "", false, loadErr
}

// evaluate checks every achievement driven by counter a.
func (e *Engine) evaluate(a Action, errs *[]error) []string {
	var fired []string
	for _, ach := range e.achievements {
		if ach.Counter != a {
			continue
		}
		_, ok, err := e.CheckAchievement(ach.ID)
		if err != nil {
			*errs = append(*errs, err)
		}
		if ok {
			fired = append(fired, ach.ID)
		}
	}
	return fired
}

// =============================================================================
// QUERIES
// =============================================================================

// Counters returns a copy of the action counters.
func (e *Engine) Counters() map[Action]int {
	out := make(map[Action]int, len(e.counters))
	for k, v := range e.counters {
		out[k] = v
	}
	return out
}

// Unlocked returns the ids of achievements already earned.
func (e *Engine) Unlocked() []string {
	var out []string
	for _, a := range e.achievements {
		if e.flags[a.ID] {
			out = append(out, a.ID)
		}
	}
	return out
}

func (e *Engine) Streak() Streak { return e.streak }

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) increment(a Action, errs *[]error) int {
	e.counters[a]++
	if err := credits.SaveJSON(e.store, credits.Key(credits.EntityRewardCounters, e.identity.UserID()), e.counters); err != nil {
		*errs = append(*errs, err)
	}
	return e.counters[a]
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) report(a Action, errs []error) error {
	err := errors.Join(errs...)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"user_id": e.identity.UserID(),
			"action":  a,
		}).Error("Reward state not fully persisted")
	}
	return err
}
