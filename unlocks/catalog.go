/*
Package unlocks tracks the cosmetic items a user has bought with credits.

PURPOSE:
  Avatars, themes and borders are unlocked by spending credits. Some items
  are free defaults that every user owns from the first login. Ownership is
  monotonic: an unlocked item is never re-locked.

KEY CONCEPTS:
  - Catalog: static table of items and their costs
  - Registry: one user's unlocked set, persisted per kind as
    unlocked_<kind>s_<userId>

EXAMPLE:
  balance 20, Unlock("special_avatar", 20)
    -> balance 0, IsUnlocked("special_avatar") == true
  Unlock("special_avatar", 20) again
    -> "already unlocked", balance still 0

SEE ALSO:
  - registry.go: Unlock flow
  - credits/ledger.go: Debit
*/
package unlocks

import (
	"errors"
	"fmt"
)

// Kind groups items for display and storage.
type Kind string

const (
	KindAvatar Kind = "avatar"
	KindTheme  Kind = "theme"
	KindBorder Kind = "border"

	// KindItem holds ids that are not in the catalog.
	KindItem Kind = "item"
)

// Kinds lists every storage bucket, in display order.
var Kinds = []Kind{KindAvatar, KindTheme, KindBorder, KindItem}

func (k Kind) Valid() bool {
	switch k {
	case KindAvatar, KindTheme, KindBorder, KindItem:
		return true
	}
	return false
}

// Item is one catalog entry. Default items are owned from the first login
// and cost nothing.
type Item struct {
	ID      string `json:"id" toml:"id"`
	Name    string `json:"name" toml:"name"`
	Kind    Kind   `json:"kind" toml:"kind"`
	Cost    int    `json:"cost" toml:"cost"`
	Icon    string `json:"icon,omitempty" toml:"icon"`
	Default bool   `json:"default,omitempty" toml:"default"`
}

var (
	ErrDuplicateItem = errors.New("duplicate catalog item")
	ErrInvalidItem   = errors.New("invalid catalog item")
)

// =============================================================================
// CATALOG
// =============================================================================

type Catalog struct {
	items []Item
	byID  map[string]Item
}

// NewCatalog validates items and indexes them by id.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Item, len(items))}
	for _, it := range items {
		switch {
		case it.ID == "":
			return nil, fmt.Errorf("%w: empty id", ErrInvalidItem)
		case !it.Kind.Valid() || it.Kind == KindItem:
			return nil, fmt.Errorf("%w: %s has kind %q", ErrInvalidItem, it.ID, it.Kind)
		case it.Cost < 0:
			return nil, fmt.Errorf("%w: %s has negative cost", ErrInvalidItem, it.ID)
		case it.Default && it.Cost != 0:
			return nil, fmt.Errorf("%w: default item %s must be free", ErrInvalidItem, it.ID)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, it.ID)
		}
		if it.Name == "" {
			it.Name = it.ID
		}
		c.byID[it.ID] = it
		c.items = append(c.items, it)
	}
	return c, nil
}

// DefaultCatalog is the compiled-in item table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultItems())
	if err != nil {
		panic(err)
	}
	return c
}

func DefaultItems() []Item {
	return []Item{
		{ID: "default_cat", Name: "Classic Cat", Kind: KindAvatar, Icon: "🐱", Default: true},
		{ID: "tabby_cat", Name: "Tabby Cat", Kind: KindAvatar, Cost: 5, Icon: "🐈"},
		{ID: "black_cat", Name: "Black Cat", Kind: KindAvatar, Cost: 10, Icon: "🐈‍⬛"},
		{ID: "special_avatar", Name: "Special Avatar", Kind: KindAvatar, Cost: 20, Icon: "😺"},
		{ID: "wizard_cat", Name: "Wizard Cat", Kind: KindAvatar, Cost: 25, Icon: "🧙"},

		{ID: "light", Name: "Light Theme", Kind: KindTheme, Icon: "☀️", Default: true},
		{ID: "dark", Name: "Dark Theme", Kind: KindTheme, Icon: "🌙", Default: true},
		{ID: "ocean", Name: "Ocean Theme", Kind: KindTheme, Cost: 15, Icon: "🌊"},
		{ID: "sunset", Name: "Sunset Theme", Kind: KindTheme, Cost: 15, Icon: "🌅"},
		{ID: "forest", Name: "Forest Theme", Kind: KindTheme, Cost: 20, Icon: "🌲"},

		{ID: "none", Name: "No Border", Kind: KindBorder, Default: true},
		{ID: "gold_border", Name: "Gold Border", Kind: KindBorder, Cost: 10, Icon: "🥇"},
		{ID: "rainbow_border", Name: "Rainbow Border", Kind: KindBorder, Cost: 30, Icon: "🌈"},
	}
}

// Lookup returns the item with id, if cataloged.
func (c *Catalog) Lookup(id string) (Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// CostOf returns the item's cost. Items absent from the catalog cost 0.
func (c *Catalog) CostOf(id string) int {
	return c.byID[id].Cost
}

// KindOf returns the storage bucket for id.
func (c *Catalog) KindOf(id string) Kind {
	if it, ok := c.byID[id]; ok {
		return it.Kind
	}
	return KindItem
}

// Items returns every item in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Defaults returns the ids of free default items of kind k.
func (c *Catalog) Defaults(k Kind) []string {
	var ids []string
	for _, it := range c.items {
		if it.Kind == k && it.Default {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
