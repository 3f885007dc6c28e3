package models

// Sort fields accepted by the product listing endpoint.
type SortField string

const (
	SortByName        SortField = "name"
	SortByCreatedAt   SortField = "created_at"
	SortByPrice       SortField = "current_price"
	SortByTargetPrice SortField = "target_price"
	SortByLastChecked SortField = "last_checked_at"
)

// SortOrder is the listing sort direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Listing defaults. These are filled into every Filters value before key
// derivation so that an implicit default and an explicit one always resolve
// to the same cache slot.
const (
	DefaultPage     = 1
	DefaultPageSize = 12
)

const (
	DefaultSortField = SortByCreatedAt
	DefaultSortOrder = OrderDesc
)

// Filters parameterizes a collection read. Two Filters values are
// cache-equivalent iff all fields compare equal after Canonical().
type Filters struct {
	Page     int       `json:"page" validate:"omitempty,gte=1"`
	PageSize int       `json:"page_size" validate:"omitempty,gte=1,lte=100"`
	Search   string    `json:"search,omitempty" validate:"omitempty,max=100"`
	SortBy   SortField `json:"sort_by" validate:"omitempty,oneof=name created_at current_price target_price last_checked_at"`
	Order    SortOrder `json:"order" validate:"omitempty,oneof=asc desc"`
}

// Canonical returns a copy of f with every zero-valued field replaced by its
// default. All key derivation and request encoding goes through this, so the
// cache never fragments into duplicate slots for logically identical queries.
func (f Filters) Canonical() Filters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.SortBy == "" {
		f.SortBy = DefaultSortField
	}
	if f.Order == "" {
		f.Order = DefaultSortOrder
	}
	return f
}
