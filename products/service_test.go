package products

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/pkg/models"
	"pricewatch/querycache"
	"pricewatch/track"
)

// mockAPI is a hand-rolled API double with per-method call counts and
// programmable results.
type mockAPI struct {
	mu    sync.Mutex
	calls map[string]int

	listResult  *models.PagedResult
	getResult   *models.Product
	mutResult   *models.Product
	history     []models.PricePoint
	stats       *models.PriceStats
	err         error
	checkActive func() // observed while CheckNow is executing
}

func newMockAPI() *mockAPI {
	return &mockAPI{calls: make(map[string]int)}
}

func (m *mockAPI) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.err
}

func (m *mockAPI) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *mockAPI) List(ctx context.Context, f models.Filters) (*models.PagedResult, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	return m.listResult, nil
}

func (m *mockAPI) Get(ctx context.Context, id int64) (*models.Product, error) {
	if err := m.record("get"); err != nil {
		return nil, err
	}
	return m.getResult, nil
}

func (m *mockAPI) Create(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	if err := m.record("create"); err != nil {
		return nil, err
	}
	return m.mutResult, nil
}

func (m *mockAPI) Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	if err := m.record("update"); err != nil {
		return nil, err
	}
	return m.mutResult, nil
}

func (m *mockAPI) Delete(ctx context.Context, id int64) error {
	return m.record("delete")
}

func (m *mockAPI) CheckNow(ctx context.Context, id int64) (*models.Product, error) {
	if m.checkActive != nil {
		m.checkActive()
	}
	if err := m.record("check"); err != nil {
		return nil, err
	}
	return m.mutResult, nil
}

func (m *mockAPI) History(ctx context.Context, id int64) ([]models.PricePoint, error) {
	if err := m.record("history"); err != nil {
		return nil, err
	}
	return m.history, nil
}

func (m *mockAPI) HistoryStats(ctx context.Context, id int64) (*models.PriceStats, error) {
	if err := m.record("stats"); err != nil {
		return nil, err
	}
	return m.stats, nil
}

func product(id int64, target float64) *models.Product {
	return &models.Product{ID: id, Name: "monitor", TargetPrice: target, CheckFrequency: models.CheckDaily}
}

func newTestService(api API) (*Service, *querycache.Store, *track.Tracker) {
	cache := querycache.New(querycache.Config{DefaultStaleAfter: time.Hour})
	tracker := track.New()
	svc := New(api, cache, tracker, Config{})
	return svc, cache, tracker
}

func TestListReadsThroughCache(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Items: []models.Product{*product(1, 10)}, Page: 1, PageSize: 12, Total: 1, TotalPages: 1}
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	f := models.Filters{Page: 1, PageSize: 12, SortBy: models.SortByCreatedAt, Order: models.OrderDesc}
	first, err := svc.List(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// A freshly constructed but structurally equal filter hits the same slot.
	_, err = svc.List(context.Background(), models.Filters{Page: 1, PageSize: 12, SortBy: models.SortByCreatedAt, Order: models.OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("list"))

	// And so does the implicit-defaults spelling.
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("list"))
}

func TestCreateInvalidatesListFamilyOnly(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.getResult = product(7, 10)
	api.mutResult = product(99, 15)
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{Page: 2})
	require.NoError(t, err)
	_, err = svc.Detail(context.Background(), 7)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), models.ProductInput{
		Name: "new", URL: "https://shop.example/x", TargetPrice: 5, CheckFrequency: models.CheckDaily,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 99, created.ID)

	// Both list pages refetch; the unrelated detail slot stays fresh.
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, api.count("list"))

	_, err = svc.Detail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("get"), "detail entries for unrelated ids are untouched")
}

func TestUpdateInvalidatesDetailAndLists(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.getResult = product(42, 29.99)
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)

	target := 19.99
	api.mutResult = product(42, target)
	_, err = svc.Update(context.Background(), 42, models.ProductPatch{TargetPrice: &target})
	require.NoError(t, err)

	// The next detail read refetches and reflects the new target price
	// without the caller issuing an explicit refetch.
	api.getResult = product(42, target)
	got, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	assert.InDelta(t, 19.99, got.TargetPrice, 1e-9)
	assert.Equal(t, 2, api.count("get"))

	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("list"))
}

func TestDeleteInvalidatesListsAndOrphansDetail(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.getResult = product(42, 10)
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 42))

	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("list"))

	// The orphaned detail slot still exists but is simply never read again.
	_, ok := cache.Peek(detailKey(42))
	assert.True(t, ok)
}

func TestCheckNowPatchesDetailAndInvalidatesHistory(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.getResult = product(42, 10)
	api.history = []models.PricePoint{{ProductID: 42, Price: 29.90}}
	api.stats = &models.PriceStats{ProductID: 42, Count: 1}
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.History(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.Stats(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)

	price := 21.50
	checked := product(42, 10)
	checked.CurrentPrice = &price
	api.mutResult = checked

	got, err := svc.CheckNow(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)

	// detail(42) equals the returned product immediately, with no fetch.
	detail, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	assert.Same(t, checked, detail)
	assert.Equal(t, 1, api.count("get"), "the patched slot answers without a refetch")

	// history and stats were invalidated and refetch on next read.
	_, err = svc.History(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.Stats(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("history"))
	assert.Equal(t, 2, api.count("stats"))

	// lists were invalidated too.
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("list"))
}

func TestCheckNowDrivesTracker(t *testing.T) {
	api := newMockAPI()
	api.mutResult = product(42, 10)
	svc, cache, tracker := newTestService(api)
	defer cache.Close()

	api.checkActive = func() {
		assert.True(t, tracker.IsActive(42), "entry exists while the check runs")
	}

	_, err := svc.CheckNow(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, tracker.IsActive(42), "entry removed on success")

	api.err = errors.New("scrape failed")
	_, err = svc.CheckNow(context.Background(), 42)
	require.Error(t, err)
	assert.False(t, tracker.IsActive(42), "entry removed on failure too")
}

func TestFailedMutationLeavesCacheUntouched(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.getResult = product(42, 10)
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)

	wantErr := errors.New("boom")
	api.err = wantErr

	target := 5.0
	_, err = svc.Update(context.Background(), 42, models.ProductPatch{TargetPrice: &target})
	assert.ErrorIs(t, err, wantErr)
	_, err = svc.Create(context.Background(), models.ProductInput{Name: "x", URL: "https://e/x", TargetPrice: 1, CheckFrequency: models.CheckDaily})
	assert.ErrorIs(t, err, wantErr)
	assert.ErrorIs(t, svc.Delete(context.Background(), 42), wantErr)
	_, err = svc.CheckNow(context.Background(), 42)
	assert.ErrorIs(t, err, wantErr)

	// No invalidation ran: reads still answer from cache with zero calls.
	api.err = nil
	_, err = svc.Detail(context.Background(), 42)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("get"))
	assert.Equal(t, 1, api.count("list"))
}

func TestWatchListsSeesMutationInvalidation(t *testing.T) {
	api := newMockAPI()
	api.listResult = &models.PagedResult{Page: 1}
	api.mutResult = product(1, 10)
	svc, cache, _ := newTestService(api)
	defer cache.Close()

	_, err := svc.List(context.Background(), models.Filters{})
	require.NoError(t, err)

	sub := svc.WatchLists()
	defer sub.Close()

	_, err = svc.Create(context.Background(), models.ProductInput{Name: "x", URL: "https://e/x", TargetPrice: 1, CheckFrequency: models.CheckDaily})
	require.NoError(t, err)

	select {
	case ev := <-sub.C():
		assert.Equal(t, querycache.EventInvalidated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no invalidation event for subscribed list family")
	}
}
