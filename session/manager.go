/*
manager.go - Live sessions for the HTTP server

PURPOSE:
  The server sees requests, not logins. Manager opens a Session on the
  first request for a user and keeps it until logout or until it has been
  idle longer than IdleTimeout.

CONCURRENCY:
  Components inside a Session are not goroutine-safe. Do runs the callback
  under a per-session mutex, so requests for one user are serialised while
  requests for different users run in parallel. The manager mutex guards
  only the map; opening a session (store reads, seeding, daily login)
  happens under that session's own mutex.

  A single Manager gives one Session per user in this process. Two
  processes sharing a Store still race (see credits/ledger.go).

IDLE EVICTION:
  A cron job (github.com/robfig/cron/v3) calls Sweep on a schedule.
  Eviction is logout: the Session is closed, durable state stays.

SEE ALSO:
  - session.go: What a Session holds
  - api/handlers.go: Every handler goes through Do
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
)

// DefaultIdleTimeout is how long an unused session survives.
const DefaultIdleTimeout = 30 * time.Minute

// DefaultSweepSchedule runs the idle sweep every minute.
const DefaultSweepSchedule = "@every 1m"

type entry struct {
	mu       sync.Mutex
	s        *Session
	lastUsed time.Time
	closed   bool
}

// Manager keeps one Session per user id.
type Manager struct {
	store       credits.Store
	opts        []Option
	IdleTimeout time.Duration
	now         credits.Clock
	logger      *log.Entry

	OnOpen  func()
	OnClose func()

	mu       sync.Mutex
	sessions map[string]*entry

	cronMu sync.Mutex
	cron   *cron.Cron
}

// NewManager creates a Manager. opts are applied to every Session it opens.
func NewManager(store credits.Store, opts ...Option) *Manager {
	return &Manager{
		store:       store,
		opts:        opts,
		IdleTimeout: DefaultIdleTimeout,
		now:         credits.SystemClock,
		logger:      log.WithField("component", "sessions"),
		sessions:    make(map[string]*entry),
	}
}

// SetClock replaces the clock used for idle tracking.
func (m *Manager) SetClock(c credits.Clock) { m.now = c }

// =============================================================================
// ACCESS
// =============================================================================

// Do runs fn with the user's Session, opening it if needed. Calls for the
// same user never overlap.
func (m *Manager) Do(userID string, fn func(*Session) error) error {
	for {
		e, err := m.acquire(userID)
		if err != nil {
			return err
		}
		if done, err := m.run(e, fn); done {
			return err
		}
		// Evicted between acquire and lock; open a fresh one.
	}
}

// run calls fn under e.mu. A panic in fn still releases the lock.
func (m *Manager) run(e *entry, fn func(*Session) error) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, nil
	}
	e.lastUsed = m.now()
	return true, fn(e.s)
}

// acquire returns the user's entry, opening the session on first use.
// m.mu only guards the map: a new entry is inserted with e.mu held and the
// session is opened outside m.mu, so other users are never blocked by it.
func (m *Manager) acquire(userID string) (*entry, error) {
	m.mu.Lock()
	if e, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return e, nil
	}
	e := &entry{}
	e.mu.Lock()
	m.sessions[userID] = e
	m.mu.Unlock()
	defer e.mu.Unlock()

	user := &credits.User{ID: userID, Authenticated: true}
	s, err := Open(user, m.store, m.opts...)
	if err != nil {
		e.closed = true
		m.mu.Lock()
		if m.sessions[userID] == e {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return nil, err
	}
	e.s = s
	e.lastUsed = m.now()
	if m.OnOpen != nil {
		m.OnOpen()
	}
	return e, nil
}

// Logout closes the user's session. Returns false if none was open.
func (m *Manager) Logout(userID string) bool {
	m.mu.Lock()
	e, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	m.close(e)
	e.mu.Unlock()
	return true
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle longer than IdleTimeout. Sessions busy in Do
// are skipped. Returns how many were closed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.IdleTimeout)
	evicted := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			m.close(e)
			delete(m.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	if evicted > 0 {
		m.logger.WithField("evicted", evicted).Info("Idle sessions closed")
	}
	return evicted
}

// CloseAll logs every user out, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.mu.Lock()
		m.close(e)
		e.mu.Unlock()
	}
}

// close must be called with e.mu held.
func (m *Manager) close(e *entry) {
	if e.closed || e.s == nil {
		e.closed = true
		return
	}
	e.closed = true
	e.s.Close()
	if m.OnClose != nil {
		m.OnClose()
	}
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Start schedules Sweep with a cron expression ("@every 1m", "*/5 * * * *").
func (m *Manager) Start(schedule string) error {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if m.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { m.Sweep() }); err != nil {
		return err
	}
	c.Start()
	m.cron = c
	m.logger.WithFields(log.Fields{
		"schedule":     schedule,
		"idle_timeout": m.IdleTimeout,
	}).Info("Session sweeper started")
	return nil
}

// Stop halts the sweeper and waits for a running sweep, or ctx.
func (m *Manager) Stop(ctx context.Context) {
	m.cronMu.Lock()
	c := m.cron
	m.cron = nil
	m.cronMu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	m.logger.Info("Session sweeper stopped")
}
