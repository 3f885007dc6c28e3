// Package track implements the in-flight action tracker: an ephemeral,
// ordered set of product IDs whose price check is currently running on the
// backend. It exists purely to drive UI affordances (spinners, disabled
// buttons, "checking N products" counters) and is independent of the query
// cache.
//
// Invariants:
//   - at most one entry per product ID (Start is idempotent)
//   - an entry is removed whether the underlying check succeeds or fails
//   - nothing is persisted; state is rebuilt empty on restart
package track

import (
	"sync"
	"time"
)

// Entry is one in-flight price check.
type Entry struct {
	ProductID   int64
	DisplayName string
	StartedAt   time.Time
}

// Tracker is the in-flight set. Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	order   []int64
	entries map[int64]Entry
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[int64]Entry)}
}

// Start records a check for id. Returns false when the id is already active;
// the existing entry and its StartedAt are left untouched.
func (t *Tracker) Start(id int64, displayName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, active := t.entries[id]; active {
		return false
	}
	t.entries[id] = Entry{ProductID: id, DisplayName: displayName, StartedAt: time.Now()}
	t.order = append(t.order, id)
	return true
}

// Finish removes the entry for id. No-op when absent; callers run it in a
// defer so the entry is cleared on success and failure alike.
func (t *Tracker) Finish(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, active := t.entries[id]; !active {
		return false
	}
	delete(t.entries, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// IsActive reports whether a check is in flight for id.
func (t *Tracker) IsActive(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, active := t.entries[id]
	return active
}

// Active returns the in-flight entries in insertion order.
func (t *Tracker) Active() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	active := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		active = append(active, t.entries[id])
	}
	return active
}

// Len returns the number of in-flight checks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear removes every entry. Used on logout together with the cache's Clear.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[int64]Entry)
	t.order = nil
}
