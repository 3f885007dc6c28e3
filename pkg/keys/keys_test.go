package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pricewatch/pkg/models"
)

func TestListKeyDeterminism(t *testing.T) {
	a := List("products", models.Filters{Page: 1, PageSize: 12, SortBy: models.SortByCreatedAt, Order: models.OrderDesc})
	b := List("products", models.Filters{Page: 1, PageSize: 12, SortBy: models.SortByCreatedAt, Order: models.OrderDesc})
	assert.Equal(t, a, b, "structurally equal filters must derive equal keys")
}

func TestListKeyCanonicalization(t *testing.T) {
	// An implicit default and an explicit one must share a cache slot.
	implicit := List("products", models.Filters{})
	explicit := List("products", models.Filters{
		Page:     models.DefaultPage,
		PageSize: models.DefaultPageSize,
		SortBy:   models.DefaultSortField,
		Order:    models.DefaultSortOrder,
	})
	assert.Equal(t, implicit, explicit)
}

func TestListKeyShape(t *testing.T) {
	k := List("products", models.Filters{Page: 1, PageSize: 12, SortBy: models.SortByCreatedAt, Order: models.OrderDesc})
	assert.Equal(t, Key("products:list:page=1&page_size=12&q=&sort=created_at&order=desc"), k)
}

func TestDistinctFiltersDistinctKeys(t *testing.T) {
	base := models.Filters{Page: 1, PageSize: 12}
	cases := []models.Filters{
		{Page: 2, PageSize: 12},
		{Page: 1, PageSize: 24},
		{Page: 1, PageSize: 12, Search: "monitor"},
		{Page: 1, PageSize: 12, SortBy: models.SortByPrice},
		{Page: 1, PageSize: 12, Order: models.OrderAsc},
	}
	for _, f := range cases {
		assert.NotEqual(t, List("products", base), List("products", f), "filters %+v", f)
	}
}

func TestSearchEscaping(t *testing.T) {
	a := List("products", models.Filters{Search: "a:b"})
	b := List("products", models.Filters{Search: "a", Page: 1})
	assert.NotEqual(t, a, b)
	assert.Contains(t, string(a), "q=a%3Ab")
}

func TestDetailAndSubResourceKeys(t *testing.T) {
	assert.Equal(t, Key("products:detail:42"), Detail("products", 42))
	assert.Equal(t, Key("products:detail:42:history"), History("products", 42))
	assert.Equal(t, Key("products:detail:42:stats"), Stats("products", 42))
}

func TestPrefixFamilies(t *testing.T) {
	all := []Key{
		List("products", models.Filters{}),
		List("products", models.Filters{Page: 2}),
		Detail("products", 42),
		History("products", 42),
		Stats("products", 42),
		Detail("products", 7),
	}

	lists := MatchPrefix(ListPrefix("products"), all)
	assert.Len(t, lists, 2)

	subtree := MatchPrefix(DetailPrefix("products", 42), all)
	assert.ElementsMatch(t, []Key{
		Detail("products", 42),
		History("products", 42),
		Stats("products", 42),
	}, subtree)

	assert.False(t, Detail("products", 7).InFamily(ListPrefix("products")))

	// Segment-aware: id 420 is not in the family of id 42.
	assert.False(t, Detail("products", 420).InFamily(DetailPrefix("products", 42)))
	assert.True(t, Detail("products", 42).InFamily(DetailPrefix("products", 42)))
}
