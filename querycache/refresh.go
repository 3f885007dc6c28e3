package querycache

import (
	"context"
	"time"

	"pricewatch/pkg/keys"
	"pricewatch/pkg/logging"
)

// Background refresh gives subscribed keys stale-while-revalidate behavior:
// consumers keep reading the stale value while a worker refetches it, and the
// EventSet notification tells them when fresh data landed.
//
// Only entries that (a) have a recorded fetcher and (b) are covered by at
// least one subscription are refreshed. Everything else goes stale quietly
// and is refetched on the next read.

// runRefresher scans for refreshable stale entries on a fixed interval and
// hands them to a small worker pool.
func (s *Store) runRefresher() {
	defer s.wg.Done()

	queue := make(chan keys.Key, 64)
	for i := 0; i < s.cfg.RefreshWorkers; i++ {
		s.wg.Add(1)
		go s.refreshWorker(queue)
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			close(queue)
			return
		case <-ticker.C:
			for _, key := range s.staleSubscribed() {
				select {
				case queue <- key:
				default:
					// Queue full; the key stays stale and is picked up on
					// the next scan or the next consumer read.
				}
			}
		}
	}
}

// staleSubscribed returns the stale keys worth refreshing.
func (s *Store) staleSubscribed() []keys.Key {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	due := make([]keys.Key, 0)
	for key, e := range s.entries {
		if e.fetch == nil || !e.stale(now) {
			continue
		}
		if s.subs.covers(key) {
			due = append(due, key)
		}
	}
	return due
}

func (s *Store) refreshWorker(queue <-chan keys.Key) {
	defer s.wg.Done()
	for key := range queue {
		s.refresh(key)
	}
}

// refresh refetches one key through the flight group, so a concurrent
// consumer read and a background refresh still issue a single request.
func (s *Store) refresh(key keys.Key) {
	s.mu.RLock()
	e, ok := s.entries[key]
	var fetch FetchFunc
	var staleAfter time.Duration
	if ok {
		fetch = e.fetch
		staleAfter = e.staleAfter
	}
	s.mu.RUnlock()
	if !ok || fetch == nil {
		return
	}

	_, err, _ := s.flight.Do(string(key), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()

		value, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		s.write(key, value, staleAfter, fetch)
		return value, nil
	})
	if err != nil {
		s.metrics.Errors.Add(1)
		logging.Warn("querycache", "background refresh failed", err, map[string]any{"key": string(key)})
		return
	}
	s.metrics.Refreshes.Add(1)
}
