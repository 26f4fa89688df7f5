// Package store provides Store implementations.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/catbutler/credits-engine/credits"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// ErrInjectedWrite is returned by writes while FailWrites is on.
var ErrInjectedWrite = errors.New("injected write failure")

type Memory struct {
	mu     sync.RWMutex
	values map[string]string

	failWrites bool
	writes     int
}

var _ credits.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrInjectedWrite
	}
	m.values[key] = value
	m.writes++
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrInjectedWrite
	}
	delete(m.values, key)
	m.writes++
	return nil
}

// FailWrites makes every subsequent Set/Remove fail (quota exceeded, full
// disk). Reads keep working.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// Writes counts successful Set/Remove calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Keys returns all keys with the given prefix, sorted.
func (m *Memory) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
