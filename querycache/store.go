// Package querycache implements the process-wide query cache that sits
// between the UI layer and the resource client: a keyed store of fetched
// results with per-entry staleness, request coalescing to prevent duplicate
// fetches, and change notifications for subscribed consumers.
//
// State machine per key:
//
//	absent -> fetching -> fresh -> (stale-after elapses) stale -> fetching -> fresh ...
//
// Reads of a fresh entry return synchronously and perform zero fetches. Reads
// of an absent or stale entry run the caller's fetch function; concurrent
// reads for the same key share a single in-flight fetch. A failed fetch
// surfaces the error together with any previously held value, so consumers
// can keep rendering stale data while showing the failure.
//
// Design Choices:
//   - The store is an explicit injectable object with a lifecycle (New, Clear,
//     Close) rather than a package-level singleton. Clear is the documented
//     logout operation: it drops every entry in one step.
//   - Request coalescing via golang.org/x/sync/singleflight. Duplicate
//     suppression is part of the cache contract, not an optimization.
//   - Invalidation marks entries stale instead of deleting them, preserving
//     stale-but-available reads until the next fetch completes.
//   - Writes outside the mutation rules are disallowed by contract; Set exists
//     only for the check-now patch, where the server response is already
//     authoritative.
package querycache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pricewatch/pkg/keys"
)

// FetchFunc loads the value for a key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Config holds store construction parameters.
type Config struct {
	// DefaultStaleAfter applies when Get is called with staleAfter <= 0.
	DefaultStaleAfter time.Duration
	// RefreshInterval is how often the background refresher scans for stale
	// subscribed entries. Zero disables background refresh.
	RefreshInterval time.Duration
	// RefreshWorkers is the number of concurrent background refetches.
	RefreshWorkers int
	// RefreshTimeout bounds each background refetch.
	RefreshTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultStaleAfter <= 0 {
		c.DefaultStaleAfter = 30 * time.Second
	}
	if c.RefreshWorkers <= 0 {
		c.RefreshWorkers = 2
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 10 * time.Second
	}
	return c
}

// entry is one cached slot. A zero fetchedAt marks the entry stale regardless
// of its stale-after window (the invalidation marker).
type entry struct {
	value      any
	fetchedAt  time.Time
	staleAfter time.Duration
	fetch      FetchFunc // last fetcher, reused by background refresh
}

func (e *entry) stale(now time.Time) bool {
	if e.fetchedAt.IsZero() {
		return true
	}
	return now.After(e.fetchedAt.Add(e.staleAfter))
}

// Entry is a read-only snapshot of a cache slot, for tests and diagnostics.
type Entry struct {
	Value      any
	FetchedAt  time.Time
	StaleAfter time.Duration
}

// Stale reports whether the snapshot was stale at the given instant.
func (e Entry) Stale(now time.Time) bool {
	if e.FetchedAt.IsZero() {
		return true
	}
	return now.After(e.FetchedAt.Add(e.StaleAfter))
}

// Store is the query cache. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[keys.Key]*entry

	flight  singleflight.Group
	subs    subscribers
	metrics Metrics
	cfg     Config

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a store. When cfg.RefreshInterval is positive, a background
// refresher keeps subscribed stale entries warm; Close stops it.
func New(cfg Config) *Store {
	s := &Store{
		entries: make(map[keys.Key]*entry),
		cfg:     cfg.withDefaults(),
		stop:    make(chan struct{}),
	}
	s.subs.dropped = func() { s.metrics.DroppedEvents.Add(1) }
	if cfg.RefreshInterval > 0 {
		s.wg.Add(1)
		go s.runRefresher()
	}
	return s
}

// Get returns the cached value for key, fetching it when the slot is absent
// or stale. staleAfter <= 0 uses the configured default.
//
// On fetch failure the previous value (if any) is returned alongside the
// error; callers distinguish the cases by checking both results.
func (s *Store) Get(ctx context.Context, key keys.Key, staleAfter time.Duration, fetch FetchFunc) (any, error) {
	if staleAfter <= 0 {
		staleAfter = s.cfg.DefaultStaleAfter
	}

	s.mu.RLock()
	var prev any
	var hasPrev bool
	if e, ok := s.entries[key]; ok {
		prev, hasPrev = e.value, true
		if !e.stale(time.Now()) {
			value := e.value
			s.mu.RUnlock()
			s.metrics.Hits.Add(1)
			return value, nil
		}
	}
	s.mu.RUnlock()
	s.metrics.Misses.Add(1)

	value, err, shared := s.flight.Do(string(key), func() (any, error) {
		// A previous flight participant may have refreshed the slot between
		// our staleness check and joining the flight.
		s.mu.RLock()
		if e, ok := s.entries[key]; ok && !e.stale(time.Now()) {
			fresh := e.value
			s.mu.RUnlock()
			return fresh, nil
		}
		s.mu.RUnlock()

		fetched, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		s.write(key, fetched, staleAfter, fetch)
		return fetched, nil
	})
	if shared {
		s.metrics.Coalesced.Add(1)
	}
	if err != nil {
		s.metrics.Errors.Add(1)
		if hasPrev {
			return prev, err
		}
		return nil, err
	}
	return value, nil
}

// Set writes a server-authoritative value directly into the cache. This is
// the check-now patch path; all other cache changes go through Get or the
// invalidation operations.
func (s *Store) Set(key keys.Key, value any, staleAfter time.Duration) {
	if staleAfter <= 0 {
		staleAfter = s.cfg.DefaultStaleAfter
	}
	s.write(key, value, staleAfter, nil)
}

// write stores the value and notifies subscribers. A nil fetch preserves any
// previously recorded fetcher so background refresh keeps working after a
// direct patch.
func (s *Store) write(key keys.Key, value any, staleAfter time.Duration, fetch FetchFunc) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.value = value
	e.fetchedAt = time.Now()
	e.staleAfter = staleAfter
	if fetch != nil {
		e.fetch = fetch
	}
	s.mu.Unlock()

	s.metrics.Sets.Add(1)
	s.subs.notify(Event{Key: key, Kind: EventSet, At: time.Now()})
}

// Invalidate marks the given keys stale. Missing keys are ignored. Returns
// the number of entries actually marked.
func (s *Store) Invalidate(invalid ...keys.Key) int {
	count := 0
	for _, key := range invalid {
		s.mu.Lock()
		e, ok := s.entries[key]
		if ok && !e.fetchedAt.IsZero() {
			e.fetchedAt = time.Time{}
			count++
		}
		s.mu.Unlock()
		if ok {
			s.flight.Forget(string(key))
			s.subs.notify(Event{Key: key, Kind: EventInvalidated, At: time.Now()})
		}
	}
	s.metrics.Invalidations.Add(int64(count))
	return count
}

// InvalidatePrefix marks every entry in the given key family stale. Returns
// the number of entries marked.
func (s *Store) InvalidatePrefix(prefix string) int {
	return s.Invalidate(keys.MatchPrefix(prefix, s.Keys())...)
}

// Peek returns the current value for key without triggering a fetch. The
// value may be stale; ok reports presence only.
func (s *Store) Peek(key keys.Key) (value any, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, found := s.entries[key]; found {
		return e.value, true
	}
	return nil, false
}

// Snapshot returns a copy of the slot for key, or ok=false when absent.
func (s *Store) Snapshot(key keys.Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, found := s.entries[key]; found {
		return Entry{Value: e.value, FetchedAt: e.fetchedAt, StaleAfter: e.staleAfter}, true
	}
	return Entry{}, false
}

// Keys returns the keys of all current entries, fresh or stale.
func (s *Store) Keys() []keys.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]keys.Key, 0, len(s.entries))
	for k := range s.entries {
		all = append(all, k)
	}
	return all
}

// Len returns the number of cached slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry. This is the logout operation: after Clear the
// cache holds no data from the previous session. Subscriptions survive and
// receive a single EventCleared.
func (s *Store) Clear() {
	s.mu.Lock()
	dropped := make([]keys.Key, 0, len(s.entries))
	for k := range s.entries {
		dropped = append(dropped, k)
	}
	s.entries = make(map[keys.Key]*entry)
	s.mu.Unlock()

	for _, k := range dropped {
		s.flight.Forget(string(k))
	}
	s.subs.notifyAll(Event{Kind: EventCleared, At: time.Now()})
}

// MetricsSnapshot returns a snapshot of the store's counters.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot(s.Len())
}

// Close stops background work. The store remains readable but no further
// background refreshes run.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}
