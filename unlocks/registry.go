package unlocks

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/catbutler/credits-engine/credits"
	"github.com/catbutler/credits-engine/events"
)

// Debiter is the part of the ledger the registry needs.
type Debiter interface {
	Debit(amount int, description string, typ credits.TxType, icon string) (int, error)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is one user's unlocked-item set. Not safe for concurrent use.
type Registry struct {
	identity credits.Identity
	ledger   Debiter
	store    credits.Store
	bus      events.Publisher
	catalog  *Catalog
	logger   *log.Entry

	unlocked map[string]struct{}
	byKind   map[Kind][]string // insertion order, what gets persisted
	loaded   bool
}

type Option func(*Registry)

func WithCatalog(c *Catalog) Option { return func(r *Registry) { r.catalog = c } }

func WithLogger(l *log.Entry) Option { return func(r *Registry) { r.logger = l } }

// NewRegistry creates an empty registry. bus may be nil.
func NewRegistry(id credits.Identity, ledger Debiter, store credits.Store, bus events.Publisher, opts ...Option) *Registry {
	r := &Registry{
		identity: id,
		ledger:   ledger,
		store:    store,
		bus:      bus,
		catalog:  DefaultCatalog(),
		logger:   log.WithField("component", "unlocks"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reset()
	return r
}

// StorageKey is where kind k is persisted for userID.
func StorageKey(k Kind, userID string) string {
	return credits.Key("unlocked_"+string(k)+"s", userID)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load reads every kind's unlocked list. A kind with no stored list is
// seeded with the catalog's free defaults and persisted.
func (r *Registry) Load() error {
	if !r.identity.IsAuthenticated() {
		return nil
	}
	r.Reset()
	uid := r.identity.UserID()

	var errs []error
	for _, k := range Kinds {
		var ids []string
		found, err := credits.LoadJSON(r.store, StorageKey(k, uid), &ids)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !found {
			ids = r.catalog.Defaults(k)
			if len(ids) > 0 {
				if err := credits.SaveJSON(r.store, StorageKey(k, uid), ids); err != nil {
					errs = append(errs, err)
				}
			}
		}
		for _, id := range ids {
			r.add(k, id)
		}
	}
	r.loaded = true
	return errors.Join(errs...)
}

// Reset clears the in-memory set on logout.
func (r *Registry) Reset() {
	r.unlocked = make(map[string]struct{})
	r.byKind = make(map[Kind][]string)
	r.loaded = false
}

func (r *Registry) Loaded() bool { return r.loaded }

// =============================================================================
// OPERATIONS
// =============================================================================

// IsUnlocked reports whether the user owns id.
func (r *Registry) IsUnlocked(id string) bool {
	_, ok := r.unlocked[id]
	return ok
}

// Unlock buys id for cost credits.
//
// Failures leave balance and set untouched: ErrUnauthenticated,
// *AlreadyUnlockedError, ErrInvalidAmount (negative cost) and any Debit
// error. A *StorageError is the exception: the item is unlocked in memory
// whenever the debit went through, so no path charges without unlocking.
func (r *Registry) Unlock(id string, cost int) error {
	if !r.identity.IsAuthenticated() {
		return credits.ErrUnauthenticated
	}
	if !r.loaded {
		if err := r.Load(); err != nil {
			return err
		}
	}
	if r.IsUnlocked(id) {
		return &credits.AlreadyUnlockedError{ItemID: id}
	}
	if cost < 0 {
		return credits.ErrInvalidAmount
	}

	item, ok := r.catalog.Lookup(id)
	if !ok {
		item = Item{ID: id, Name: id, Kind: KindItem}
	}

	var errs []error
	if cost > 0 {
		if _, err := r.ledger.Debit(cost, item.Name+" unlocked", credits.TxUnlock, item.Icon); err != nil {
			if !credits.IsStorageError(err) {
				return err
			}
			errs = append(errs, err)
		}
	}

	r.add(item.Kind, id)
	uid := r.identity.UserID()
	if err := credits.SaveJSON(r.store, StorageKey(item.Kind, uid), r.byKind[item.Kind]); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{"user_id": uid, "item_id": id}).Error("Failed to persist unlock")
		errs = append(errs, err)
	}

	r.logger.WithFields(log.Fields{"user_id": uid, "item_id": id, "amount": cost}).Info("Item unlocked")
	if r.bus != nil {
		r.bus.Publish(events.ItemUnlocked{ItemID: id, ItemName: item.Name, Cost: cost})
	}
	return errors.Join(errs...)
}

// UnlockItem buys id at its catalog price.
func (r *Registry) UnlockItem(id string) error {
	return r.Unlock(id, r.catalog.CostOf(id))
}

// Unlocked returns the ids owned in kind k, in unlock order.
func (r *Registry) Unlocked(k Kind) []string {
	out := make([]string, len(r.byKind[k]))
	copy(out, r.byKind[k])
	return out
}

func (r *Registry) add(k Kind, id string) {
	if _, ok := r.unlocked[id]; ok {
		return
	}
	r.unlocked[id] = struct{}{}
	r.byKind[k] = append(r.byKind[k], id)
}
