package products

import (
	"context"
	"fmt"

	"pricewatch/pkg/keys"
	"pricewatch/pkg/models"
)

func listKey(f models.Filters) keys.Key { return keys.List(Entity, f) }
func detailKey(id int64) keys.Key       { return keys.Detail(Entity, id) }
func historyKey(id int64) keys.Key      { return keys.History(Entity, id) }
func statsKey(id int64) keys.Key        { return keys.Stats(Entity, id) }
func listPrefix() string                { return keys.ListPrefix(Entity) }
func detailPrefix(id int64) string      { return keys.DetailPrefix(Entity, id) }

// List returns one page of products, read-through the cache. On fetch failure
// a previously cached page (possibly stale) is returned alongside the error.
func (s *Service) List(ctx context.Context, f models.Filters) (*models.PagedResult, error) {
	value, err := s.cache.Get(ctx, listKey(f), s.cfg.ListStaleAfter, func(ctx context.Context) (any, error) {
		return s.api.List(ctx, f)
	})
	return cached[*models.PagedResult](value), err
}

// Detail returns a single product, read-through the cache.
func (s *Service) Detail(ctx context.Context, id int64) (*models.Product, error) {
	value, err := s.cache.Get(ctx, detailKey(id), s.cfg.DetailStaleAfter, func(ctx context.Context) (any, error) {
		return s.api.Get(ctx, id)
	})
	return cached[*models.Product](value), err
}

// History returns a product's recorded price samples, read-through the cache.
func (s *Service) History(ctx context.Context, id int64) ([]models.PricePoint, error) {
	value, err := s.cache.Get(ctx, historyKey(id), s.cfg.HistoryStaleAfter, func(ctx context.Context) (any, error) {
		return s.api.History(ctx, id)
	})
	return cached[[]models.PricePoint](value), err
}

// Stats returns the aggregate statistics over a product's history,
// read-through the cache.
func (s *Service) Stats(ctx context.Context, id int64) (*models.PriceStats, error) {
	value, err := s.cache.Get(ctx, statsKey(id), s.cfg.StatsStaleAfter, func(ctx context.Context) (any, error) {
		return s.api.HistoryStats(ctx, id)
	})
	return cached[*models.PriceStats](value), err
}

// cached narrows a cache value back to its concrete type. Slots under this
// package's keys only ever hold values written by this package, so a type
// mismatch is a programming error.
func cached[T any](value any) T {
	var zero T
	if value == nil {
		return zero
	}
	typed, ok := value.(T)
	if !ok {
		panic(fmt.Sprintf("products: cache slot holds %T, want %T", value, zero))
	}
	return typed
}
