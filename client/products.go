package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"pricewatch/pkg/models"
)

// List fetches one page of tracked products. Filters are canonicalized before
// encoding so the request shape always matches the derived cache key.
func (c *Client) List(ctx context.Context, f models.Filters) (*models.PagedResult, error) {
	f = f.Canonical()
	if err := c.validate.Struct(f); err != nil {
		return nil, newValidationError("GET /products", err)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(f.Page))
	query.Set("page_size", strconv.Itoa(f.PageSize))
	if f.Search != "" {
		query.Set("search", f.Search)
	}
	query.Set("sort_by", string(f.SortBy))
	query.Set("order", string(f.Order))

	var result models.PagedResult
	if err := c.do(ctx, http.MethodGet, "/products", query, nil, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches a single product.
func (c *Client) Get(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create registers a new product to track.
func (c *Client) Create(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, newValidationError("POST /products", err)
	}
	var p models.Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, input, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update to a product. Nil patch fields are left
// unchanged by the backend.
func (c *Client) Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	op := fmt.Sprintf("PUT /products/%d", id)
	if err := c.validate.Struct(patch); err != nil {
		return nil, newValidationError(op, err)
	}
	var p models.Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), nil, patch, &p, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete stops tracking a product.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, nil, nil)
}

// CheckNow asks the backend to re-check the product's price immediately and
// returns the updated product. The Idempotency-Key lets the backend collapse
// duplicate submissions of the same check.
func (c *Client) CheckNow(ctx context.Context, id int64) (*models.Product, error) {
	headers := http.Header{}
	headers.Set("Idempotency-Key", uuid.NewString())

	var p models.Product
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/products/%d/check", id), nil, nil, &p, headers); err != nil {
		return nil, err
	}
	return &p, nil
}

// History fetches the recorded price samples for a product.
func (c *Client) History(ctx context.Context, id int64) ([]models.PricePoint, error) {
	var points []models.PricePoint
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/history", id), nil, nil, &points, nil); err != nil {
		return nil, err
	}
	return points, nil
}

// HistoryStats fetches the aggregate statistics over a product's history.
func (c *Client) HistoryStats(ctx context.Context, id int64) (*models.PriceStats, error) {
	var stats models.PriceStats
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/history/stats", id), nil, nil, &stats, nil); err != nil {
		return nil, err
	}
	return &stats, nil
}
