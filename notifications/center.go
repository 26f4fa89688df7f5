/*
Package notifications turns domain events into user-visible records.

PURPOSE:
  The Center listens on a session's event bus. Each event is rendered
  through a fixed template, prepended to the user's list (newest first)
  and the list is persisted as notifications_<userId>.

STATE MACHINE (per notification):
  unread --MarkRead/MarkAllRead--> read

  Read is terminal: nothing flips a record back to unread. Records leave
  the list only through Delete or ClearAll.

ORDERING:
  The Center must be attached before any producer runs; the bus does not
  buffer, so events published earlier are lost.

SEE ALSO:
  - templates.go: Event -> notification mapping
  - events/bus.go: Delivery semantics
*/
package notifications

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/events"
)

// ErrNotificationNotFound is returned for ids not in the list.
var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one user-facing record.
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// =============================================================================
// CENTER
// =============================================================================

type Center struct {
	identity credits.Identity
	store    credits.Store
	clock    credits.Clock
	logger   *log.Entry
	onCreate func(Notification)

	list   []Notification // newest first
	unread int
	loaded bool
	subs   []*events.Subscription
}

type Option func(*Center)

func WithClock(c credits.Clock) Option { return func(n *Center) { n.clock = c } }

func WithLogger(l *log.Entry) Option { return func(n *Center) { n.logger = l } }

// WithOnCreate registers a hook run after each new notification is stored.
func WithOnCreate(fn func(Notification)) Option { return func(n *Center) { n.onCreate = fn } }

func NewCenter(id credits.Identity, store credits.Store, opts ...Option) *Center {
	c := &Center{
		identity: id,
		store:    store,
		clock:    credits.SystemClock,
		logger:   log.WithField("component", "notifications"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach subscribes to every domain event on sub. Calling Attach again
// first drops the previous subscriptions.
func (c *Center) Attach(sub events.Subscriber) {
	c.Detach()
	for _, name := range events.Names {
		c.subs = append(c.subs, sub.Subscribe(name, c.handle))
	}
}

// Detach removes every subscription made by Attach.
func (c *Center) Detach() {
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.subs = nil
}

func (c *Center) handle(e events.Event) {
	d, ok := render(e)
	if !ok {
		return
	}
	if _, err := c.add(d); err != nil {
		c.logger.WithError(err).WithField("event", e.Name()).Warn("Notification not persisted")
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load reads the stored list. A missing key means an empty list.
func (c *Center) Load() error {
	if !c.identity.IsAuthenticated() {
		return nil
	}
	c.Reset()
	var list []Notification
	if _, err := credits.LoadJSON(c.store, c.key(), &list); err != nil {
		return err
	}
	c.list = list
	c.recount()
	c.loaded = true
	return nil
}

// Reset clears memory on logout. Subscriptions are left alone.
func (c *Center) Reset() {
	c.list = nil
	c.unread = 0
	c.loaded = false
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Notify adds a free-form notification, for messages not tied to a domain
// event.
func (c *Center) Notify(typ Type, title, message, icon, category string) (Notification, error) {
	if !typ.Valid() {
		return Notification{}, fmt.Errorf("unknown notification type %q", typ)
	}
	if category == "" {
		category = CategoryGeneral
	}
	return c.add(draft{Type: typ, Title: title, Message: message, Icon: icon, Category: category})
}

// MarkRead flips one notification to read. Already-read is a no-op.
func (c *Center) MarkRead(id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	i := c.index(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	if c.list[i].Read {
		return nil
	}
	c.list[i].Read = true
	c.recount()
	return c.persist()
}

// MarkAllRead flips every notification to read.
func (c *Center) MarkAllRead() error {
	if err := c.ready(); err != nil {
		return err
	}
	for i := range c.list {
		c.list[i].Read = true
	}
	c.unread = 0
	return c.persist()
}

// Delete removes one notification.
func (c *Center) Delete(id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	i := c.index(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	c.list = append(c.list[:i:i], c.list[i+1:]...)
	c.recount()
	return c.persist()
}

// ClearAll empties the list and removes the stored key.
func (c *Center) ClearAll() error {
	if err := c.ready(); err != nil {
		return err
	}
	c.list = nil
	c.unread = 0
	if err := c.store.Remove(c.key()); err != nil {
		return &credits.StorageError{Key: c.key(), Err: err}
	}
	return nil
}

// List returns a copy of the notifications, newest first.
func (c *Center) List() []Notification {
	out := make([]Notification, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Center) UnreadCount() int { return c.unread }

// =============================================================================
// HELPERS
// =============================================================================

func (c *Center) add(d draft) (Notification, error) {
	if !c.identity.IsAuthenticated() {
		// Events arriving after logout are dropped.
		return Notification{}, nil
	}
	if err := c.ready(); err != nil {
		return Notification{}, err
	}
	now := c.clock()
	n := Notification{
		ID:        newID(now),
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		Icon:      d.Icon,
		Category:  d.Category,
		Timestamp: now.UTC(),
	}
	c.list = append([]Notification{n}, c.list...)
	c.recount()
	err := c.persist()
	if c.onCreate != nil {
		c.onCreate(n)
	}
	return n, err
}

// ready loads lazily and rejects calls with no signed-in user.
func (c *Center) ready() error {
	if !c.identity.IsAuthenticated() {
		return credits.ErrUnauthenticated
	}
	if c.loaded {
		return nil
	}
	return c.Load()
}

func (c *Center) persist() error {
	err := credits.SaveJSON(c.store, c.key(), c.list)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", c.identity.UserID()).Error("Failed to persist notifications")
	}
	return err
}

func (c *Center) recount() {
	c.unread = 0
	for _, n := range c.list {
		if !n.Read {
			c.unread++
		}
	}
}

func (c *Center) index(id string) int {
	for i, n := range c.list {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (c *Center) key() string {
	return credits.Key(credits.EntityNotifications, c.identity.UserID())
}

// newID is unix millis plus a random suffix, so ids sort by creation time.
func newID(t time.Time) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), uuid.NewString()[:8])
}
