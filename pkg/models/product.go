// Package models provides the canonical data model shared by the PriceWatch
// client layers: the tracked product resource, its history sub-resources, and
// the filter object that parameterizes collection reads.
//
// Design Philosophy:
// - Plain value types with JSON tags matching the backend wire format
// - Pointer fields only where the backend returns null (unchecked products)
// - Validation rules live on the input types as struct tags, enforced by the
//   resource client before any network call
package models

import "time"

// CheckFrequency is how often the backend re-checks a product's price.
type CheckFrequency string

const (
	CheckHourly CheckFrequency = "hourly"
	CheckDaily  CheckFrequency = "daily"
	CheckWeekly CheckFrequency = "weekly"
)

// Valid reports whether f is one of the supported frequencies.
func (f CheckFrequency) Valid() bool {
	switch f {
	case CheckHourly, CheckDaily, CheckWeekly:
		return true
	}
	return false
}

// Product is a tracked product as returned by the backend. A product is owned
// by exactly one user; ownership is enforced server-side and never appears in
// the client model.
//
// CurrentPrice and LastCheckedAt are nil until the first successful price
// check completes.
type Product struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	CurrentPrice   *float64       `json:"current_price,omitempty"`
	TargetPrice    float64        `json:"target_price"`
	CheckFrequency CheckFrequency `json:"check_frequency"`
	CreatedAt      time.Time      `json:"created_at"`
	LastCheckedAt  *time.Time     `json:"last_checked_at,omitempty"`
}

// ProductInput is the payload for creating a new tracked product.
type ProductInput struct {
	Name           string         `json:"name" validate:"required,max=200"`
	URL            string         `json:"url" validate:"required,url"`
	TargetPrice    float64        `json:"target_price" validate:"gt=0"`
	CheckFrequency CheckFrequency `json:"check_frequency" validate:"required,oneof=hourly daily weekly"`
}

// ProductPatch is a partial update. Nil fields are omitted from the request
// body and left unchanged by the backend.
type ProductPatch struct {
	Name           *string         `json:"name,omitempty" validate:"omitempty,max=200"`
	TargetPrice    *float64        `json:"target_price,omitempty" validate:"omitempty,gt=0"`
	CheckFrequency *CheckFrequency `json:"check_frequency,omitempty" validate:"omitempty,oneof=hourly daily weekly"`
}

// PagedResult is one page of a filtered product listing.
type PagedResult struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// PricePoint is a single observed price sample in a product's history.
type PricePoint struct {
	ProductID  int64     `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PriceStats summarizes a product's price history.
type PriceStats struct {
	ProductID int64    `json:"product_id"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Avg       float64  `json:"avg"`
	Count     int      `json:"count"`
	Latest    *float64 `json:"latest,omitempty"`
}
