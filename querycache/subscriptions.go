package querycache

import (
	"sync"
	"time"

	"pricewatch/pkg/keys"
)

// EventKind classifies a cache change notification.
type EventKind int

const (
	// EventSet fires when a slot receives a new value (fetch or patch).
	EventSet EventKind = iota
	// EventInvalidated fires when a slot is marked stale.
	EventInvalidated
	// EventCleared fires once per subscriber when the whole store is cleared.
	EventCleared
)

// Event is a cache change notification. Key is empty for EventCleared.
type Event struct {
	Key  keys.Key
	Kind EventKind
	At   time.Time
}

// Subscription receives change events for one key family. Events are
// delivered best-effort: when the subscriber's buffer is full the event is
// dropped rather than blocking cache operations. Consumers that miss events
// recover on their next read, so a drop degrades freshness, not correctness.
type Subscription struct {
	prefix string
	ch     chan Event

	once  sync.Once
	store *Store
	id    uint64
}

// C is the event channel. It is closed by Close.
func (sub *Subscription) C() <-chan Event { return sub.ch }

// Close detaches the subscription and closes its channel.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.store.subs.remove(sub.id)
		close(sub.ch)
	})
}

// subscribers is the store's subscriber registry. It adapts the distributed
// pub/sub coordination idea to a single process: cache writes and
// invalidations broadcast to whoever is rendering the affected keys.
type subscribers struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription

	dropped func() // metrics hook, set by the store
}

// Subscribe registers for events on the given key family. An empty prefix
// receives every event. buffer <= 0 defaults to a small buffer.
func (s *Store) Subscribe(prefix string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{
		prefix: prefix,
		ch:     make(chan Event, buffer),
		store:  s,
	}

	s.subs.mu.Lock()
	if s.subs.subs == nil {
		s.subs.subs = make(map[uint64]*Subscription)
	}
	s.subs.nextID++
	sub.id = s.subs.nextID
	s.subs.subs[sub.id] = sub
	s.subs.mu.Unlock()
	return sub
}

func (r *subscribers) remove(id uint64) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// notify delivers an event to subscribers whose prefix covers the key.
func (r *subscribers) notify(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.prefix != "" && !ev.Key.InFamily(sub.prefix) {
			continue
		}
		r.send(sub, ev)
	}
}

// notifyAll delivers an event to every subscriber regardless of prefix.
func (r *subscribers) notifyAll(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		r.send(sub, ev)
	}
}

func (r *subscribers) send(sub *Subscription, ev Event) {
	select {
	case sub.ch <- ev:
	default:
		if r.dropped != nil {
			r.dropped()
		}
	}
}

// covers reports whether any subscriber watches the given key. Used by the
// background refresher to skip entries nobody is rendering.
func (r *subscribers) covers(key keys.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.prefix == "" || key.InFamily(sub.prefix) {
			return true
		}
	}
	return false
}
