package storage

import (
	"context"

	"trendradar/internal/domain"
	"trendradar/internal/scraper"
)

// UpsertResult reports the product a candidate resolved to and whether the
// row was newly created.
type UpsertResult struct {
	ProductID int64
	Created   bool
}

// ProductStore is the durable product tracker: one product row per identity
// key, append-only metric history, and source links.
type ProductStore interface {
	// Record persists one scored observation atomically: the product upsert,
	// its metric snapshot, and its source link either all become visible or
	// none do.
	Record(ctx context.Context, candidate scraper.CandidateRecord, score float64) (UpsertResult, error)

	// Upsert inserts or updates the product row for the candidate's identity
	// key. New rows get firstSeen=lastSeen=now and status "new"; existing
	// rows get lastSeen and trendScore updated, with imageURL/description
	// filled only when previously unknown.
	Upsert(ctx context.Context, candidate scraper.CandidateRecord, score float64) (UpsertResult, error)

	// AppendMetric inserts a metric snapshot row. Rows are never updated.
	AppendMetric(ctx context.Context, productID int64, snapshot domain.MetricSnapshot) error

	// RecordSource inserts a source link. Duplicate productID+url pairs are
	// tolerated.
	RecordSource(ctx context.Context, productID int64, platform domain.Platform, url string) error

	// GetByIdentityKey looks a product up by its identity key. Returns
	// ErrNotFound when no product exists for the key.
	GetByIdentityKey(ctx context.Context, identityKey string) (*domain.Product, error)

	// ListProducts returns products matching the filter, most recently
	// updated first.
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	// MetricHistory returns the most recent limit snapshots for a product,
	// ascending by capture time.
	MetricHistory(ctx context.Context, productID int64, limit int) ([]domain.MetricSnapshot, error)

	// UpdateStatus sets the curation status. Curator operation; the
	// pipeline itself never calls this.
	UpdateStatus(ctx context.Context, productID int64, status domain.ProductStatus) error

	// UpdateNotes sets the curator notes on a product.
	UpdateNotes(ctx context.Context, productID int64, notes string) error
}
