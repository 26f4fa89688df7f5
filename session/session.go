/*
Package session binds one signed-in user to their credits components.

PURPOSE:
  A Session owns everything that used to be module-level state: the event
  bus, ledger, unlock registry, reward engine and notification center for
  a single user. Nothing is shared between users except the Store.

OPEN ORDER:
  1. Bus
  2. Notification center, attached BEFORE any producer runs
  3. Extra observers (metrics)
  4. Ledger, registry, engine
  5. Load everything, then run the daily-login check

  The bus does not buffer, so a consumer attached after step 5 would miss
  the welcome and daily-login notifications.

CLOSE:
  Close is logout: the user is signed out, in-memory state is cleared,
  subscriptions are dropped. Durable state stays in the Store.

SEE ALSO:
  - manager.go: Per-user sessions for the HTTP server
*/
package session

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/events"
	"github.com/catbutler/credits-engine/notifications"
	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/unlocks"
)

// Session is one user's live credits context. Not safe for concurrent use;
// Manager serialises access.
type Session struct {
	User          *credits.User
	Bus           *events.Bus
	Ledger        *credits.Ledger
	Unlocks       *unlocks.Registry
	Rewards       *rewards.Engine
	Notifications *notifications.Center

	observers []*events.Subscription
	closed    bool
	logger    *log.Entry
}

// =============================================================================
// OPTIONS
// =============================================================================

type config struct {
	clock        credits.Clock
	location     *time.Location
	table        rewards.Table
	catalog      *unlocks.Catalog
	welcomeBonus int
	observers    []events.Handler
	onNotify     func(notifications.Notification)
	logger       *log.Entry
}

type Option func(*config)

func WithClock(c credits.Clock) Option { return func(o *config) { o.clock = c } }

// WithLocation sets the time zone for daily-login boundaries.
func WithLocation(loc *time.Location) Option { return func(o *config) { o.location = loc } }

func WithRewardTable(t rewards.Table) Option { return func(o *config) { o.table = t } }

func WithCatalog(c *unlocks.Catalog) Option { return func(o *config) { o.catalog = c } }

func WithWelcomeBonus(n int) Option { return func(o *config) { o.welcomeBonus = n } }

// WithObserver subscribes h to every event on each session's bus.
func WithObserver(h events.Handler) Option {
	return func(o *config) { o.observers = append(o.observers, h) }
}

// WithNotificationHook runs fn for every notification created.
func WithNotificationHook(fn func(notifications.Notification)) Option {
	return func(o *config) { o.onNotify = fn }
}

func WithLogger(l *log.Entry) Option { return func(o *config) { o.logger = l } }

func newConfig(opts []Option) *config {
	c := &config{
		clock:        credits.SystemClock,
		location:     time.Local,
		table:        rewards.DefaultPolicies(),
		catalog:      unlocks.DefaultCatalog(),
		welcomeBonus: credits.WelcomeBonus,
		logger:       log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// OPEN / CLOSE
// =============================================================================

// Open builds and loads a session for an authenticated user.
//
// Corrupt stored state fails the open. Storage write failures during
// seeding or the daily-login check are logged and the session still opens.
func Open(user *credits.User, store credits.Store, opts ...Option) (*Session, error) {
	if !user.IsAuthenticated() {
		return nil, credits.ErrUnauthenticated
	}
	cfg := newConfig(opts)
	logger := cfg.logger.WithField("user_id", user.ID)

	s := &Session{
		User:   user,
		Bus:    events.NewBus(),
		logger: logger,
	}

	s.Notifications = notifications.NewCenter(user, store,
		notifications.WithClock(cfg.clock),
		notifications.WithLogger(logger.WithField("component", "notifications")),
		notifications.WithOnCreate(cfg.onNotify),
	)
	s.Notifications.Attach(s.Bus)
	for _, h := range cfg.observers {
		s.observers = append(s.observers, s.Bus.SubscribeAll(h))
	}

	s.Ledger = credits.NewLedger(user, store, s.Bus,
		credits.WithClock(cfg.clock),
		credits.WithLogger(logger.WithField("component", "ledger")),
		credits.WithWelcomeBonus(cfg.welcomeBonus),
	)
	s.Unlocks = unlocks.NewRegistry(user, s.Ledger, store, s.Bus,
		unlocks.WithCatalog(cfg.catalog),
		unlocks.WithLogger(logger.WithField("component", "unlocks")),
	)
	s.Rewards = rewards.NewEngine(user, s.Ledger, store, s.Bus,
		rewards.WithClock(cfg.clock),
		rewards.WithLocation(cfg.location),
		rewards.WithTable(cfg.table),
		rewards.WithLogger(logger.WithField("component", "rewards")),
	)

	loaders := []func() error{
		s.Notifications.Load,
		s.Ledger.Load,
		s.Unlocks.Load,
		s.Rewards.Load,
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			if !credits.IsStorageError(err) {
				s.Close()
				return nil, err
			}
			logger.WithError(err).Warn("Session state not fully persisted on load")
		}
	}

	if _, err := s.Rewards.CheckDailyLogin(); err != nil {
		logger.WithError(err).Warn("Daily login check incomplete")
	}
	logger.WithField("balance", s.Ledger.Balance()).Info("Session opened")
	return s, nil
}

// Close logs the user out. Safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.User.SignOut()
	s.Notifications.Detach()
	for _, sub := range s.observers {
		sub.Unsubscribe()
	}
	s.observers = nil
	if s.Ledger != nil {
		s.Ledger.Reset()
	}
	if s.Unlocks != nil {
		s.Unlocks.Reset()
	}
	if s.Rewards != nil {
		s.Rewards.Reset()
	}
	s.Notifications.Reset()
	s.logger.Info("Session closed")
}

func (s *Session) Closed() bool { return s.closed }

// =============================================================================
// ACTIONS
// =============================================================================

// ErrDescriptionRequired is returned by Spend with an empty description.
var ErrDescriptionRequired = errors.New("description is required")

// Spend is a generic debit with the "spent" transaction type.
func (s *Session) Spend(amount int, description string) (int, error) {
	if description == "" {
		return s.Ledger.Balance(), ErrDescriptionRequired
	}
	return s.Ledger.Debit(amount, description, credits.TxSpent, "💸")
}
