/*
bus.go - In-process publish/subscribe channel

PURPOSE:
  Carries domain events from producers to UI-facing consumers without
  either side knowing about the other. One bus per user session; nothing
  here is a process-wide singleton.

DELIVERY SEMANTICS:
  1. SYNCHRONOUS: Publish returns after every handler has run.
  2. ORDERED: Matching handlers run in registration order, wildcard
     handlers (SubscribeAll) included.
  3. UNBUFFERED: No queue, no replay. An event published while nobody
     listens is dropped silently. Consumers must be attached before the
     producing action runs.
  4. UNSUBSCRIBE: Once Unsubscribe returns, later publishes skip the
     handler. A publish already in flight uses the handler set it started
     with.

RE-ENTRANCY:
  A handler may publish again or subscribe/unsubscribe; the handler set is
  snapshotted under the lock and invoked outside it.

SEE ALSO:
  - events.go: Event names and payloads
  - notifications/center.go: Main consumer
*/
package events

import "sync"

// Handler receives one event.
type Handler func(Event)

// Publisher is the producer-side view of the bus.
type Publisher interface {
	Publish(e Event)
}

// Subscriber is the consumer-side view of the bus.
type Subscriber interface {
	Subscribe(name Name, h Handler) *Subscription
	SubscribeAll(h Handler) *Subscription
}

// Bus is an unbuffered, synchronous observer registry.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry
}

// entry is one registration; all marks a SubscribeAll handler.
type entry struct {
	id   uint64
	name Name
	all  bool
	h    Handler
}

func (en entry) matches(name Name) bool {
	return en.all || en.name == name
}

// Subscription is returned by Subscribe; call Unsubscribe to detach.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for events with the given name.
func (b *Bus) Subscribe(name Name, h Handler) *Subscription {
	return b.add(entry{name: name, h: h})
}

// SubscribeAll registers h for every event published on the bus.
func (b *Bus) SubscribeAll(h Handler) *Subscription {
	return b.add(entry{all: true, h: h})
}

func (b *Bus) add(en entry) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	en.id = b.nextID
	b.entries = append(b.entries, en)
	return &Subscription{bus: b, id: en.id}
}

// Publish delivers e to the current subscribers. Publishing a nil event or
// publishing with no subscribers is a no-op.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}

	b.mu.Lock()
	targets := make([]Handler, 0, len(b.entries))
	for _, en := range b.entries {
		if en.matches(e.Name()) {
			targets = append(targets, en.h)
		}
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(e)
	}
}

// SubscriberCount reports how many handlers would receive an event with the
// given name, wildcards included.
func (b *Bus) SubscriberCount(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, en := range b.entries {
		if en.matches(name) {
			n++
		}
	}
	return n
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

// remove builds a fresh slice so in-flight snapshots stay intact.
func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entry, 0, len(b.entries))
	for _, en := range b.entries {
		if en.id != id {
			out = append(out, en)
		}
	}
	b.entries = out
}
