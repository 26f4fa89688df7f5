package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/catbutler/credits-engine/rewards"
	"github.com/catbutler/credits-engine/unlocks"
)

// CatalogFile is the TOML layout of CATALOG_PATH:
//
//	[rewards]
//	task_completed = 3
//
//	[[items]]
//	id   = "ocean"
//	name = "Ocean Theme"
//	kind = "theme"
//	cost = 12
type CatalogFile struct {
	Rewards map[string]int `toml:"rewards"`
	Items   []unlocks.Item `toml:"items"`
}

// Catalog is the resolved reward table and item catalog.
type Catalog struct {
	Rewards rewards.Table
	Items   *unlocks.Catalog
}

// DefaultCatalog is used when no file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{Rewards: rewards.DefaultPolicies(), Items: unlocks.DefaultCatalog()}
}

// LoadCatalog reads path. An empty path returns the defaults. Items listed
// in the file replace the default item with the same id and new ids are
// appended; reward amounts override the default table.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	var f CatalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return f.Resolve()
}

// DecodeCatalog parses TOML text, for tests and embedded catalogs.
func DecodeCatalog(data string) (*Catalog, error) {
	var f CatalogFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return f.Resolve()
}

// Resolve merges the file over the defaults.
func (f CatalogFile) Resolve() (*Catalog, error) {
	table, err := rewards.DefaultPolicies().WithAmounts(f.Rewards)
	if err != nil {
		return nil, err
	}

	items := unlocks.DefaultItems()
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[it.ID] = i
	}
	for _, it := range f.Items {
		if i, ok := index[it.ID]; ok {
			items[i] = it
			continue
		}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	cat, err := unlocks.NewCatalog(items)
	if err != nil {
		return nil, err
	}
	return &Catalog{Rewards: table, Items: cat}, nil
}
