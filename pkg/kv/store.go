// Package kv provides a generic thread-safe key-value store with optional
// per-entry expiry and access tracking.
package kv

import (
	"sync"
	"time"
)

// Stats describes how an entry has been used. Eviction policies rank entries
// by (AccessCount, LastAccess) ascending.
type Stats struct {
	AccessCount int
	LastAccess  time.Time
	StoredAt    time.Time
}

type entry[V any] struct {
	value V
	stats Stats
}

// Store is a thread-safe generic key-value store. A zero TTL means entries
// never expire.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	ttl  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a new key-value store without expiry.
func New[K comparable, V any]() *Store[K, V] {
	return NewTTL[K, V](0)
}

// NewTTL creates a key-value store whose entries expire ttl after being set.
func NewTTL[K comparable, V any](ttl time.Duration) *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get retrieves a value by key. An expired entry is a miss, but stays in the
// store so GetStale can still serve it; sweeps happen via DeleteFunc.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || s.expired(e) {
		var zero V
		return zero, false
	}

	e.stats.AccessCount++
	e.stats.LastAccess = s.now()
	s.data[key] = e
	return e.value, true
}

// GetStale retrieves a value by key even if it has expired, without touching
// access stats. Used by callers that degrade to stale data when a refresh
// fails.
func (s *Store[K, V]) GetStale(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value by key, resetting its expiry and access stats.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.data[key] = entry[V]{
		value: value,
		stats: Stats{StoredAt: now, LastAccess: now},
	}
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Clear removes all entries from the store.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[K]entry[V])
}

// Len returns the number of live (non-expired) entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.data {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// Keys returns the keys of all live entries.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]K, 0, len(s.data))
	for k, e := range s.data {
		if !s.expired(e) {
			keys = append(keys, k)
		}
	}
	return keys
}

// StatsFor returns the usage stats of a live entry.
func (s *Store[K, V]) StatsFor(key K) (Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || s.expired(e) {
		return Stats{}, false
	}
	return e.stats, true
}

// DeleteFunc removes every entry whose key matches the predicate and returns
// the number removed. Expired entries are swept as a side effect.
func (s *Store[K, V]) DeleteFunc(match func(K) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.data {
		if s.expired(e) || match(k) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

// SetClock replaces the store's time source. Intended for tests.
func (s *Store[K, V]) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store[K, V]) expired(e entry[V]) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(e.stats.StoredAt) >= s.ttl
}
