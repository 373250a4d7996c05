package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"trendradar/internal/domain"
	"trendradar/internal/scraper"
	"trendradar/internal/storage"
)

// ProductStore implements storage.ProductStore using PostgreSQL. The unique
// constraint on identity_key plus ON CONFLICT upserts serialize concurrent
// writers per product.
type ProductStore struct {
	pool *Pool
}

// NewProductStore creates a new ProductStore.
func NewProductStore(pool *Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProductStore = (*ProductStore)(nil)

// querier abstracts pool and transaction access for the write helpers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record persists one scored observation inside a single transaction: the
// product upsert, its metric snapshot, and its source link commit together
// or not at all.
func (s *ProductStore) Record(ctx context.Context, candidate scraper.CandidateRecord, score float64) (storage.UpsertResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.UpsertResult{}, fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := upsert(ctx, tx, candidate, score)
	if err != nil {
		return storage.UpsertResult{}, err
	}

	snapshot := candidate.Metric()
	if err := appendMetric(ctx, tx, result.ProductID, snapshot); err != nil {
		return storage.UpsertResult{}, err
	}

	if sourceURL := candidate.Metadata["source_url"]; sourceURL != "" {
		if err := recordSource(ctx, tx, result.ProductID, candidate.Platform, sourceURL); err != nil {
			return storage.UpsertResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.UpsertResult{}, fmt.Errorf("commit record tx: %w", err)
	}
	return result, nil
}

// Upsert inserts or updates the product row for the candidate's identity key.
func (s *ProductStore) Upsert(ctx context.Context, candidate scraper.CandidateRecord, score float64) (storage.UpsertResult, error) {
	return upsert(ctx, s.pool, candidate, score)
}

func upsert(ctx context.Context, q querier, candidate scraper.CandidateRecord, score float64) (storage.UpsertResult, error) {
	// first_seen survives conflicts; image_url and description never
	// overwrite a known value with an unknown one.
	query := `
		INSERT INTO products (name, platform, identity_key, image_url, description, first_seen, last_seen, trend_score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8)
		ON CONFLICT (identity_key) DO UPDATE SET
			name = EXCLUDED.name,
			last_seen = EXCLUDED.last_seen,
			trend_score = EXCLUDED.trend_score,
			image_url = COALESCE(products.image_url, EXCLUDED.image_url),
			description = COALESCE(products.description, EXCLUDED.description)
		RETURNING id, (xmax = 0) AS created
	`

	now := time.Now().UTC()
	var result storage.UpsertResult
	err := q.QueryRow(ctx, query,
		candidate.Name,
		string(candidate.Platform),
		candidate.URL,
		candidate.ImageURL,
		candidate.Description,
		now,
		score,
		string(domain.StatusNew),
	).Scan(&result.ProductID, &result.Created)
	if err != nil {
		return storage.UpsertResult{}, fmt.Errorf("upsert product: %w", err)
	}
	return result, nil
}

// AppendMetric inserts a metric snapshot row.
func (s *ProductStore) AppendMetric(ctx context.Context, productID int64, snapshot domain.MetricSnapshot) error {
	return appendMetric(ctx, s.pool, productID, snapshot)
}

func appendMetric(ctx context.Context, q querier, productID int64, snapshot domain.MetricSnapshot) error {
	capturedAt := snapshot.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO metrics (product_id, captured_at, reviews, rating, orders, votes, price, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		productID,
		capturedAt,
		snapshot.Reviews,
		snapshot.Rating,
		snapshot.Orders,
		snapshot.Votes,
		snapshot.Price,
		snapshot.Comments,
	)
	if err != nil {
		return fmt.Errorf("append metric: %w", err)
	}
	return nil
}

// RecordSource inserts a source link row. Re-seeing a product at a known
// URL is a no-op.
func (s *ProductStore) RecordSource(ctx context.Context, productID int64, platform domain.Platform, url string) error {
	return recordSource(ctx, s.pool, productID, platform, url)
}

func recordSource(ctx context.Context, q querier, productID int64, platform domain.Platform, url string) error {
	query := `
		INSERT INTO sources (product_id, platform, url, found_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, url) DO NOTHING
	`
	_, err := q.Exec(ctx, query, productID, string(platform), url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

const productColumns = "id, name, platform, identity_key, image_url, description, first_seen, last_seen, trend_score, status, notes"

// GetByIdentityKey looks a product up by its identity key.
func (s *ProductStore) GetByIdentityKey(ctx context.Context, identityKey string) (*domain.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE identity_key = $1", productColumns)

	row := s.pool.QueryRow(ctx, query, identityKey)
	p, err := scanProduct(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get product by identity key: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching the filter, most recently updated
// first.
func (s *ProductStore) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Platforms) > 0 {
		placeholders := make([]string, 0, len(filter.Platforms))
		for _, p := range filter.Platforms {
			placeholders = append(placeholders, arg(string(p)))
		}
		conds = append(conds, fmt.Sprintf("platform IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.MinTrendScore > 0 {
		conds = append(conds, fmt.Sprintf("trend_score >= %s", arg(filter.MinTrendScore)))
	}
	if filter.FirstSeenFrom != nil {
		conds = append(conds, fmt.Sprintf("first_seen >= %s", arg(*filter.FirstSeenFrom)))
	}
	if filter.LastSeenUntil != nil {
		conds = append(conds, fmt.Sprintf("last_seen <= %s", arg(*filter.LastSeenUntil)))
	}

	query := fmt.Sprintf("SELECT %s FROM products", productColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY last_seen DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// MetricHistory returns the most recent limit snapshots for a product,
// ascending by capture time.
func (s *ProductStore) MetricHistory(ctx context.Context, productID int64, limit int) ([]domain.MetricSnapshot, error) {
	query := `
		SELECT id, product_id, captured_at, reviews, rating, orders, votes, price, comments
		FROM (
			SELECT id, product_id, captured_at, reviews, rating, orders, votes, price, comments
			FROM metrics
			WHERE product_id = $1
			ORDER BY captured_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY captured_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("metric history: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.MetricSnapshot
	for rows.Next() {
		var m domain.MetricSnapshot
		if err := rows.Scan(&m.ID, &m.ProductID, &m.CapturedAt, &m.Reviews, &m.Rating, &m.Orders, &m.Votes, &m.Price, &m.Comments); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		snapshots = append(snapshots, m)
	}
	return snapshots, rows.Err()
}

// UpdateStatus sets the curation status of a product.
func (s *ProductStore) UpdateStatus(ctx context.Context, productID int64, status domain.ProductStatus) error {
	tag, err := s.pool.Exec(ctx, "UPDATE products SET status = $1 WHERE id = $2", string(status), productID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateNotes sets the curator notes on a product.
func (s *ProductStore) UpdateNotes(ctx context.Context, productID int64, notes string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE products SET notes = $1 WHERE id = $2", notes, productID)
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanProduct scans a single product row.
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var platform, status string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&platform,
		&p.IdentityKey,
		&p.ImageURL,
		&p.Description,
		&p.FirstSeen,
		&p.LastSeen,
		&p.TrendScore,
		&status,
		&p.Notes,
	)
	if err != nil {
		return nil, err
	}
	p.Platform = domain.Platform(platform)
	p.Status = domain.ProductStatus(status)
	return &p, nil
}
