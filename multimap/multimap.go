// Package multimap provides an ordered mapping that preserves duplicate
// keys. It backs header collections (case-insensitive keys) as well as
// query parameters and form fields (case-sensitive keys).
package multimap

import (
	"iter"
	"strings"
)

// Entry is a single key-value pair. Keys keep the exact text they were
// added with; normalization only affects lookup.
type Entry struct {
	Key   string
	Value string
}

// KeyFunc normalizes a key before comparison. The strategy is fixed when
// the map is constructed.
type KeyFunc func(string) string

// CaseSensitive compares keys byte for byte.
func CaseSensitive(s string) string { return s }

// CaseInsensitive compares keys ignoring ASCII case, as header field names
// require.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.1-2
func CaseInsensitive(s string) string { return strings.ToLower(s) }

// Map is an ordered, duplicate-preserving multimap.
//
// A Map is owned by a single request/response lifetime. Concurrent reads
// are safe; concurrent mutation is not.
type Map struct {
	norm    KeyFunc
	entries []Entry
}

// New creates a Map using norm for key comparison.
// A nil norm means [CaseSensitive].
func New(norm KeyFunc) *Map {
	if norm == nil {
		norm = CaseSensitive
	}
	return &Map{norm: norm}
}

// Get returns the first value stored under key.
// ok reports whether the key is present at all.
func (m *Map) Get(key string) (value string, ok bool) {
	key = m.norm(key)
	for _, e := range m.entries {
		if m.norm(e.Key) == key {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns every value stored under key, preserving insertion order.
// It returns nil when the key is absent.
func (m *Map) Values(key string) []string {
	key = m.norm(key)
	var values []string
	for _, e := range m.entries {
		if m.norm(e.Key) == key {
			values = append(values, e.Value)
		}
	}
	return values
}

// Has reports whether at least one entry exists under key.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Add appends an entry. Existing entries for the same key are kept.
func (m *Map) Add(key, value string) {
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Set removes every entry for key, then appends a single new one.
func (m *Map) Set(key, value string) {
	m.Del(key)
	m.Add(key, value)
}

// Del removes every entry for key.
func (m *Map) Del(key string) {
	key = m.norm(key)
	kept := m.entries[:0]
	for _, e := range m.entries {
		if m.norm(e.Key) != key {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

// Len returns the number of entries, counting duplicates.
func (m *Map) Len() int { return len(m.entries) }

// Keys returns the keys in first-occurrence order, without duplicates.
// Each key keeps the spelling of its first entry.
func (m *Map) Keys() []string {
	seen := make(map[string]struct{}, len(m.entries))
	keys := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		k := m.norm(e.Key)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, e.Key)
	}
	return keys
}

// Entries returns a copy of all entries in insertion order.
func (m *Map) Entries() []Entry {
	clone := make([]Entry, len(m.entries))
	copy(clone, m.entries)
	return clone
}

// All iterates over entries in insertion order. The sequence is restartable;
// re-iterating yields the same order unless the map was mutated in between.
func (m *Map) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, e := range m.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy sharing the same key strategy.
func (m *Map) Clone() *Map {
	return &Map{norm: m.norm, entries: m.Entries()}
}
