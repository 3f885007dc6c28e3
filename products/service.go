// Package products binds the resource client, the query cache and the
// in-flight tracker into the consumer-facing data layer for tracked products.
//
// Reads (List, Detail, History, Stats) are read-through: a fresh cache slot
// answers synchronously, an absent or stale one fetches through the client
// with concurrent reads coalesced.
//
// Mutations apply a fixed invalidation rule strictly after the client call
// succeeds; there are no optimistic cache writes:
//
//	Create   -> invalidate the whole list family
//	Update   -> invalidate detail(id) + list family
//	Delete   -> invalidate the list family (the orphaned detail slot is
//	            never read again)
//	CheckNow -> patch detail(id) with the returned product, invalidate the
//	            list family, invalidate history(id) and stats(id)
//
// On failure the error propagates unchanged and no cache state changes; a
// rule either runs completely or not at all.
package products

import (
	"context"
	"time"

	"pricewatch/pkg/models"
	"pricewatch/querycache"
	"pricewatch/track"
)

// Entity is the cache key namespace for tracked products.
const Entity = "products"

// API is the slice of the resource client this service consumes.
type API interface {
	List(ctx context.Context, f models.Filters) (*models.PagedResult, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, input models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	CheckNow(ctx context.Context, id int64) (*models.Product, error)
	History(ctx context.Context, id int64) ([]models.PricePoint, error)
	HistoryStats(ctx context.Context, id int64) (*models.PriceStats, error)
}

// Config holds per-resource staleness windows. Lists go stale quickly since
// any mutation reorders them; history and stats only change when a check
// lands, so they keep longer windows.
type Config struct {
	ListStaleAfter    time.Duration
	DetailStaleAfter  time.Duration
	HistoryStaleAfter time.Duration
	StatsStaleAfter   time.Duration
}

func (c Config) withDefaults() Config {
	if c.ListStaleAfter <= 0 {
		c.ListStaleAfter = 30 * time.Second
	}
	if c.DetailStaleAfter <= 0 {
		c.DetailStaleAfter = time.Minute
	}
	if c.HistoryStaleAfter <= 0 {
		c.HistoryStaleAfter = 5 * time.Minute
	}
	if c.StatsStaleAfter <= 0 {
		c.StatsStaleAfter = 5 * time.Minute
	}
	return c
}

// Service is the product data layer. Safe for concurrent use.
type Service struct {
	api     API
	cache   *querycache.Store
	tracker *track.Tracker
	cfg     Config
}

// New wires the service. tracker may be nil when no check-now affordance is
// rendered; CheckNow then skips tracking.
func New(api API, cache *querycache.Store, tracker *track.Tracker, cfg Config) *Service {
	return &Service{
		api:     api,
		cache:   cache,
		tracker: tracker,
		cfg:     cfg.withDefaults(),
	}
}

// Tracker exposes the in-flight check tracker for UI affordances.
func (s *Service) Tracker() *track.Tracker { return s.tracker }

// WatchLists subscribes to change events for the whole list family.
func (s *Service) WatchLists() *querycache.Subscription {
	return s.cache.Subscribe(listPrefix(), 0)
}

// WatchDetail subscribes to change events for one product's detail subtree,
// including its history and stats.
func (s *Service) WatchDetail(id int64) *querycache.Subscription {
	return s.cache.Subscribe(detailPrefix(id), 0)
}
