package querycache

import "sync/atomic"

// Metrics tracks cache performance counters. All fields are atomic; reads go
// through Snapshot.
type Metrics struct {
	Hits          atomic.Int64
	Misses        atomic.Int64
	Coalesced     atomic.Int64
	Sets          atomic.Int64
	Invalidations atomic.Int64
	Refreshes     atomic.Int64
	Errors        atomic.Int64
	DroppedEvents atomic.Int64
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	Coalesced     int64   `json:"coalesced"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	Refreshes     int64   `json:"refreshes"`
	Errors        int64   `json:"errors"`
	DroppedEvents int64   `json:"dropped_events"`
	Entries       int     `json:"entries"`
}

// Snapshot captures the current counter values.
func (m *Metrics) Snapshot(entries int) MetricsSnapshot {
	hits := m.Hits.Load()
	misses := m.Misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		Hits:          hits,
		Misses:        misses,
		HitRate:       hitRate,
		Coalesced:     m.Coalesced.Load(),
		Sets:          m.Sets.Load(),
		Invalidations: m.Invalidations.Load(),
		Refreshes:     m.Refreshes.Load(),
		Errors:        m.Errors.Load(),
		DroppedEvents: m.DroppedEvents.Load(),
		Entries:       entries,
	}
}
