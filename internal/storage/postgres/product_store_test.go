package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendradar/internal/domain"
	"trendradar/internal/scraper"
	"trendradar/internal/storage"
)

func testCandidate() scraper.CandidateRecord {
	return scraper.CandidateRecord{
		Name:     "Sunset Lamp",
		URL:      "https://www.aliexpress.com/item/100500.html",
		Platform: domain.PlatformAliExpress,
		ImageURL: ptr("https://ae01.alicdn.com/kf/sunset.jpg"),
		Price:    ptr(12.49),
		Currency: ptr("US $"),
		Orders:   ptr(850),
		Metadata: map[string]string{
			"source_url": "https://www.aliexpress.com/w/wholesale-trending.html",
		},
	}
}

func TestRecordPersistsProductMetricAndSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	result, err := store.Record(ctx, testCandidate(), 65.0)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.NotZero(t, result.ProductID)

	p, err := store.GetByIdentityKey(ctx, "https://www.aliexpress.com/item/100500.html")
	require.NoError(t, err)
	assert.Equal(t, "Sunset Lamp", p.Name)
	assert.Equal(t, domain.PlatformAliExpress, p.Platform)
	assert.Equal(t, 65.0, p.TrendScore)
	assert.Equal(t, domain.StatusNew, p.Status)
	assert.WithinDuration(t, p.FirstSeen, p.LastSeen, time.Millisecond)

	history, err := store.MetricHistory(ctx, result.ProductID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 850, *history[0].Orders)
	assert.Equal(t, 12.49, *history[0].Price)
	assert.Nil(t, history[0].Votes)

	var sourceCount int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM sources WHERE product_id = $1", result.ProductID).Scan(&sourceCount)
	require.NoError(t, err)
	assert.Equal(t, 1, sourceCount)
}

func TestRecordIsIdempotentPerIdentityKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	first, err := store.Record(ctx, testCandidate(), 50.0)
	require.NoError(t, err)
	require.True(t, first.Created)

	update := testCandidate()
	update.Orders = ptr(1200)
	second, err := store.Record(ctx, update, 58.5)
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)

	var productCount int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&productCount)
	require.NoError(t, err)
	assert.Equal(t, 1, productCount)

	history, err := store.MetricHistory(ctx, first.ProductID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Same source page twice still leaves one source link.
	var sourceCount int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM sources WHERE product_id = $1", first.ProductID).Scan(&sourceCount)
	require.NoError(t, err)
	assert.Equal(t, 1, sourceCount)
}

func TestUpsertPreservesFirstSeenAndFillsUnknownFields(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	bare := testCandidate()
	bare.ImageURL = nil
	bare.Description = nil
	result, err := store.Upsert(ctx, bare, 40.0)
	require.NoError(t, err)

	before, err := store.GetByIdentityKey(ctx, bare.URL)
	require.NoError(t, err)
	assert.Nil(t, before.ImageURL)

	enriched := testCandidate()
	enriched.Description = ptr("viral sunset projection lamp")
	_, err = store.Upsert(ctx, enriched, 47.0)
	require.NoError(t, err)

	after, err := store.GetByIdentityKey(ctx, bare.URL)
	require.NoError(t, err)
	assert.Equal(t, result.ProductID, after.ID)
	assert.Equal(t, before.FirstSeen.UTC(), after.FirstSeen.UTC())
	assert.True(t, after.LastSeen.After(after.FirstSeen))
	require.NotNil(t, after.ImageURL)
	require.NotNil(t, after.Description)

	// A later observation without an image must not blank the known one.
	_, err = store.Upsert(ctx, bare, 44.0)
	require.NoError(t, err)
	final, err := store.GetByIdentityKey(ctx, bare.URL)
	require.NoError(t, err)
	require.NotNil(t, final.ImageURL)
	assert.Equal(t, "https://ae01.alicdn.com/kf/sunset.jpg", *final.ImageURL)
}

func TestGetByIdentityKeyNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)

	_, err := store.GetByIdentityKey(context.Background(), "https://example.com/nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListProductsFilterAndOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	older := testCandidate()
	_, err := store.Record(ctx, older, 70.0)
	require.NoError(t, err)

	newer := scraper.CandidateRecord{
		Name:     "LED Strip",
		URL:      "https://www.amazon.com/dp/B0LED",
		Platform: domain.PlatformAmazon,
		Rating:   ptr(4.8),
		Reviews:  ptr(120),
	}
	_, err = store.Record(ctx, newer, 30.0)
	require.NoError(t, err)

	all, err := store.ListProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "LED Strip", all[0].Name)

	scored, err := store.ListProducts(ctx, domain.ProductFilter{MinTrendScore: 50.0})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "Sunset Lamp", scored[0].Name)

	amazonOnly, err := store.ListProducts(ctx, domain.ProductFilter{
		Platforms: []domain.Platform{domain.PlatformAmazon},
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, amazonOnly, 1)
	assert.Equal(t, domain.PlatformAmazon, amazonOnly[0].Platform)
}

func TestMetricHistoryLatestAscending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	result, err := store.Upsert(ctx, testCandidate(), 40.0)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.AppendMetric(ctx, result.ProductID, domain.MetricSnapshot{
			CapturedAt: base.Add(time.Duration(i) * time.Hour),
			Orders:     ptr(800 + i*10),
		})
		require.NoError(t, err)
	}

	history, err := store.MetricHistory(ctx, result.ProductID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 820, *history[0].Orders)
	assert.Equal(t, 840, *history[2].Orders)
}

func TestUpdateStatusAndNotes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewProductStore(pool)
	ctx := context.Background()

	result, err := store.Upsert(ctx, testCandidate(), 40.0)
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, result.ProductID, domain.StatusOrderedSamples))
	require.NoError(t, store.UpdateNotes(ctx, result.ProductID, "sample ETA 2 weeks"))

	p, err := store.GetByIdentityKey(ctx, testCandidate().URL)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrderedSamples, p.Status)
	require.NotNil(t, p.Notes)
	assert.Equal(t, "sample ETA 2 weeks", *p.Notes)

	assert.ErrorIs(t, store.UpdateStatus(ctx, 9999, domain.StatusPass), storage.ErrNotFound)
	assert.ErrorIs(t, store.UpdateNotes(ctx, 9999, "x"), storage.ErrNotFound)
}
