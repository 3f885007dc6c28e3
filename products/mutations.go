package products

import (
	"context"

	"pricewatch/pkg/models"
)

// Create registers a new product. On success the whole list family is
// invalidated: the new item may appear on any page under any filter.
func (s *Service) Create(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	created, err := s.api.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(listPrefix())
	return created, nil
}

// Update applies a partial update. On success detail(id) and the list family
// are invalidated; list membership and ordering may depend on any mutated
// field.
func (s *Service) Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	updated, err := s.api.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(detailKey(id))
	s.cache.InvalidatePrefix(listPrefix())
	return updated, nil
}

// Delete stops tracking a product. On success the list family is invalidated.
// The detail slot is left orphaned on purpose: nothing reads a deleted
// product's key again, and Clear reclaims it at end of session.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(listPrefix())
	return nil
}

// CheckNow asks the backend to re-check the product's price immediately.
//
// The tracker entry is added before the call and removed whether the call
// succeeds or fails; it drives spinners only and never holds a result.
//
// On success the returned product is written straight into detail(id) — the
// server response is authoritative and already in hand, so a refetch would be
// wasted — while the list family, history and stats are invalidated.
func (s *Service) CheckNow(ctx context.Context, id int64) (*models.Product, error) {
	if s.tracker != nil {
		s.tracker.Start(id, s.displayName(id))
		defer s.tracker.Finish(id)
	}

	checked, err := s.api.CheckNow(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(detailKey(id), checked, s.cfg.DetailStaleAfter)
	s.cache.InvalidatePrefix(listPrefix())
	s.cache.Invalidate(historyKey(id), statsKey(id))
	return checked, nil
}

// displayName resolves the product name for the tracker from whatever the
// cache already holds; an empty name is fine for the affordance.
func (s *Service) displayName(id int64) string {
	if value, ok := s.cache.Peek(detailKey(id)); ok {
		if p, ok := value.(*models.Product); ok && p != nil {
			return p.Name
		}
	}
	return ""
}
