// Package localstore implements the in-process cache tier on top of
// patrickmn/go-cache: per-entry TTL with lazy expiry on read, plus a
// background janitor that sweeps expired entries on a fixed interval.
//
// The store is bounded only by convention: it never rejects writes, and
// relies on the optimizer to evict the oldest entries when the configured
// maximum is approached. Insertion times are tracked so eviction order is
// deterministic (oldest insertion first; a re-set counts as a new insertion).
package localstore

import (
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a bounded key/value store holding serialized values
type Store struct {
	cache   *gocache.Cache
	maxKeys int

	mu       sync.Mutex
	inserted map[string]time.Time
}

// New creates a store with the given default TTL, sweep interval, and
// advisory maximum entry count.
func New(defaultTTL, sweepInterval time.Duration, maxKeys int) *Store {
	s := &Store{
		cache:    gocache.New(defaultTTL, sweepInterval),
		maxKeys:  maxKeys,
		inserted: make(map[string]time.Time),
	}

	// Keep insertion tracking in sync when the janitor or an explicit
	// delete removes an entry.
	s.cache.OnEvicted(func(key string, _ interface{}) {
		s.mu.Lock()
		delete(s.inserted, key)
		s.mu.Unlock()
	})

	return s
}

// Get returns the value for key, or a miss for absent and expired entries
func (s *Store) Get(key string) ([]byte, bool) {
	value, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false
	}
	return data, true
}

// Set stores value under key. A zero ttl uses the store's default TTL.
func (s *Store) Set(key string, value []byte, ttl time.Duration) bool {
	s.cache.Set(key, value, ttl)

	s.mu.Lock()
	s.inserted[key] = time.Now()
	s.mu.Unlock()

	return true
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(key string) bool {
	_, found := s.cache.Get(key)
	s.cache.Delete(key)
	return found
}

// Keys returns the keys of all live (non-expired) entries
func (s *Store) Keys() []string {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	return keys
}

// Count returns the number of live entries
func (s *Store) Count() int {
	return len(s.cache.Items())
}

// MaxKeys returns the configured advisory maximum entry count
func (s *Store) MaxKeys() int {
	return s.maxKeys
}

// FlushAll removes every entry
func (s *Store) FlushAll() {
	s.cache.Flush()

	s.mu.Lock()
	s.inserted = make(map[string]time.Time)
	s.mu.Unlock()
}

// DeleteExpired physically removes entries whose TTL has passed
func (s *Store) DeleteExpired() {
	s.cache.DeleteExpired()
}

// EvictOldest removes up to n live entries, oldest insertion first, and
// returns the evicted keys. Ties are broken by key so the order is
// deterministic.
func (s *Store) EvictOldest(n int) []string {
	if n <= 0 {
		return nil
	}

	live := s.cache.Items()

	type aged struct {
		key string
		at  time.Time
	}

	s.mu.Lock()
	candidates := make([]aged, 0, len(live))
	for key := range live {
		candidates = append(candidates, aged{key: key, at: s.inserted[key]})
	}
	s.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].key < candidates[j].key
		}
		return candidates[i].at.Before(candidates[j].at)
	})

	if n > len(candidates) {
		n = len(candidates)
	}

	evicted := make([]string, 0, n)
	for _, candidate := range candidates[:n] {
		s.cache.Delete(candidate.key)
		evicted = append(evicted, candidate.key)
	}
	return evicted
}
