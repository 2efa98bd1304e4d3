// Package idmap maps source issue keys to target work package IDs.
//
// A Map holds at most one ID per key and never overwrites an entry. It is
// filled while entities are synchronized and frozen before relationship
// resolution starts.
package idmap

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrAlreadyMapped is returned when a key already has an ID.
	ErrAlreadyMapped = errors.New("key already mapped")

	// ErrFrozen is returned by Set after Freeze.
	ErrFrozen = errors.New("identity map is frozen")
)

// Map is a key → ID lookup with a reverse index. It is not safe for
// concurrent use; a run owns its map exclusively.
type Map struct {
	byKey  map[string]int
	byID   map[int]string
	frozen bool
}

// New returns an empty map.
func New() *Map {
	return &Map{
		byKey: make(map[string]int),
		byID:  make(map[int]string),
	}
}

// Get returns the ID for key.
func (m *Map) Get(key string) (int, bool) {
	id, ok := m.byKey[key]
	return id, ok
}

// Has reports whether key is mapped.
func (m *Map) Has(key string) bool {
	_, ok := m.byKey[key]
	return ok
}

// Key returns the source key mapped to id.
func (m *Map) Key(id int) (string, bool) {
	key, ok := m.byID[id]
	return key, ok
}

// Set records key → id. It fails if key is already mapped or the map is frozen.
func (m *Map) Set(key string, id int) error {
	if m.frozen {
		return fmt.Errorf("set %s: %w", key, ErrFrozen)
	}
	if existing, ok := m.byKey[key]; ok {
		return fmt.Errorf("set %s to %d (have %d): %w", key, id, existing, ErrAlreadyMapped)
	}
	m.byKey[key] = id
	m.byID[id] = key
	return nil
}

// Preseed loads entries found in the target system. Entries that agree with
// the map are accepted again; a conflicting entry fails the whole call
// before anything is written.
func (m *Map) Preseed(entries map[string]int) error {
	for key, id := range entries {
		if existing, ok := m.byKey[key]; ok && existing != id {
			return fmt.Errorf("preseed %s to %d (have %d): %w", key, id, existing, ErrAlreadyMapped)
		}
	}
	for key, id := range entries {
		if m.Has(key) {
			continue
		}
		if err := m.Set(key, id); err != nil {
			return err
		}
	}
	return nil
}

// Freeze makes the map read-only.
func (m *Map) Freeze() { m.frozen = true }

// Frozen reports whether Freeze was called.
func (m *Map) Frozen() bool { return m.frozen }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.byKey) }

// Keys returns the mapped keys in lexical order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.byKey))
	for k := range m.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the key → ID entries.
func (m *Map) Snapshot() map[string]int {
	out := make(map[string]int, len(m.byKey))
	for k, v := range m.byKey {
		out[k] = v
	}
	return out
}
