// Package keys implements the query key scheme used by the query cache.
//
// A key is a canonical string built from ordered segments:
//
//	products:list:page=1&page_size=12&q=&sort=created_at&order=desc
//	products:detail:42
//	products:detail:42:history
//	products:detail:42:stats
//
// Design Notes:
//   - Derivation is a pure function: structurally equal inputs always produce
//     byte-equal keys, which is what makes fetch deduplication and targeted
//     invalidation work.
//   - Filter fields are canonicalized (defaults filled) and serialized in a
//     fixed order before derivation. An implicit page=1 and an explicit one
//     share a single cache slot.
//   - Prefix helpers carve out the key families that the mutation rules
//     invalidate as a unit: the whole "list" family, or one item's detail
//     subtree (detail value, history, stats).
package keys

import (
	"fmt"
	"net/url"
	"strings"

	"pricewatch/pkg/models"
)

// Key is a canonical cache key. Keys compare with ==.
type Key string

// Segment separator. Filter values are query-escaped so the separator can
// never appear inside a segment.
const sep = ":"

// List derives the key for a filtered collection read. Filters are
// canonicalized first; callers may pass a partially filled Filters value.
func List(entity string, f models.Filters) Key {
	return Key(entity + sep + "list" + sep + encodeFilters(f.Canonical()))
}

// Detail derives the key for a single item read.
func Detail(entity string, id int64) Key {
	return Key(fmt.Sprintf("%s%sdetail%s%d", entity, sep, sep, id))
}

// History derives the key for an item's price history sub-resource.
func History(entity string, id int64) Key {
	return Detail(entity, id) + sep + "history"
}

// Stats derives the key for an item's price statistics sub-resource.
func Stats(entity string, id int64) Key {
	return Detail(entity, id) + sep + "stats"
}

// ListPrefix returns the prefix shared by every list key for the entity,
// regardless of filters. Invalidating this prefix invalidates the whole
// family, since list membership and ordering may depend on any mutated field.
func ListPrefix(entity string) string {
	return entity + sep + "list" + sep
}

// DetailPrefix returns the prefix shared by an item's detail key and its
// sub-resource keys.
func DetailPrefix(entity string, id int64) string {
	return string(Detail(entity, id))
}

// InFamily reports whether k belongs to the given key family. Matching is
// segment-aware: "products:detail:42" covers itself and "products:detail:42:history",
// but never "products:detail:420".
func (k Key) InFamily(prefix string) bool {
	if string(k) == strings.TrimSuffix(prefix, sep) {
		return true
	}
	if !strings.HasSuffix(prefix, sep) {
		prefix += sep
	}
	return strings.HasPrefix(string(k), prefix)
}

// MatchPrefix returns the subset of candidates in the given family,
// preserving order. O(n) scan with O(1) checks per key.
func MatchPrefix(prefix string, candidates []Key) []Key {
	matched := make([]Key, 0, len(candidates))
	for _, k := range candidates {
		if k.InFamily(prefix) {
			matched = append(matched, k)
		}
	}
	return matched
}

// encodeFilters serializes canonical filters in a fixed field order. Every
// field is always present, so the encoding is total and unambiguous.
func encodeFilters(f models.Filters) string {
	var b strings.Builder
	b.Grow(64)
	fmt.Fprintf(&b, "page=%d", f.Page)
	fmt.Fprintf(&b, "&page_size=%d", f.PageSize)
	b.WriteString("&q=")
	b.WriteString(url.QueryEscape(f.Search))
	b.WriteString("&sort=")
	b.WriteString(string(f.SortBy))
	b.WriteString("&order=")
	b.WriteString(string(f.Order))
	return b.String()
}
