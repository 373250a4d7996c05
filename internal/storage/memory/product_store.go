package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"trendradar/internal/domain"
	"trendradar/internal/scraper"
	"trendradar/internal/storage"
)

// ProductStore is an in-memory storage.ProductStore. It mirrors the Postgres
// implementation's semantics and backs tests that don't need a container.
type ProductStore struct {
	mu       sync.RWMutex
	nextID   int64
	byKey    map[string]*domain.Product
	metrics  map[int64][]domain.MetricSnapshot
	sources  map[int64][]domain.SourceLink
	metricID int64
	sourceID int64
}

// NewProductStore creates an empty in-memory store.
func NewProductStore() *ProductStore {
	return &ProductStore{
		byKey:   make(map[string]*domain.Product),
		metrics: make(map[int64][]domain.MetricSnapshot),
		sources: make(map[int64][]domain.SourceLink),
	}
}

var _ storage.ProductStore = (*ProductStore)(nil)

// Record persists one scored observation: product upsert, metric snapshot,
// and source link under a single lock acquisition.
func (s *ProductStore) Record(ctx context.Context, candidate scraper.CandidateRecord, score float64) (storage.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.upsertLocked(candidate, score)
	s.appendMetricLocked(result.ProductID, candidate.Metric())
	if sourceURL := candidate.Metadata["source_url"]; sourceURL != "" {
		s.recordSourceLocked(result.ProductID, candidate.Platform, sourceURL)
	}
	return result, nil
}

// Upsert inserts or updates the product row for the candidate's identity key.
func (s *ProductStore) Upsert(ctx context.Context, candidate scraper.CandidateRecord, score float64) (storage.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(candidate, score), nil
}

func (s *ProductStore) upsertLocked(candidate scraper.CandidateRecord, score float64) storage.UpsertResult {
	now := time.Now().UTC()

	if existing, ok := s.byKey[candidate.URL]; ok {
		existing.Name = candidate.Name
		existing.LastSeen = now
		existing.TrendScore = score
		if existing.ImageURL == nil {
			existing.ImageURL = copyString(candidate.ImageURL)
		}
		if existing.Description == nil {
			existing.Description = copyString(candidate.Description)
		}
		return storage.UpsertResult{ProductID: existing.ID, Created: false}
	}

	s.nextID++
	s.byKey[candidate.URL] = &domain.Product{
		ID:          s.nextID,
		Name:        candidate.Name,
		Platform:    candidate.Platform,
		IdentityKey: candidate.URL,
		ImageURL:    copyString(candidate.ImageURL),
		Description: copyString(candidate.Description),
		FirstSeen:   now,
		LastSeen:    now,
		TrendScore:  score,
		Status:      domain.StatusNew,
	}
	return storage.UpsertResult{ProductID: s.nextID, Created: true}
}

// AppendMetric inserts a metric snapshot row.
func (s *ProductStore) AppendMetric(ctx context.Context, productID int64, snapshot domain.MetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendMetricLocked(productID, snapshot)
	return nil
}

func (s *ProductStore) appendMetricLocked(productID int64, snapshot domain.MetricSnapshot) {
	s.metricID++
	snapshot.ID = s.metricID
	snapshot.ProductID = productID
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now().UTC()
	}
	s.metrics[productID] = append(s.metrics[productID], snapshot)
}

// RecordSource inserts a source link; re-seeing a known productID+url pair
// is a no-op.
func (s *ProductStore) RecordSource(ctx context.Context, productID int64, platform domain.Platform, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordSourceLocked(productID, platform, url)
	return nil
}

func (s *ProductStore) recordSourceLocked(productID int64, platform domain.Platform, url string) {
	for _, link := range s.sources[productID] {
		if link.URL == url {
			return
		}
	}
	s.sourceID++
	s.sources[productID] = append(s.sources[productID], domain.SourceLink{
		ID:        s.sourceID,
		ProductID: productID,
		Platform:  platform,
		URL:       url,
		FoundAt:   time.Now().UTC(),
	})
}

// GetByIdentityKey looks a product up by its identity key.
func (s *ProductStore) GetByIdentityKey(ctx context.Context, identityKey string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byKey[identityKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// ListProducts returns products matching the filter, most recently updated
// first.
func (s *ProductStore) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products []domain.Product
	for _, p := range s.byKey {
		if !matchesFilter(p, filter) {
			continue
		}
		products = append(products, *p)
	}

	sort.Slice(products, func(i, j int) bool {
		if !products[i].LastSeen.Equal(products[j].LastSeen) {
			return products[i].LastSeen.After(products[j].LastSeen)
		}
		return products[i].ID > products[j].ID
	})

	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func matchesFilter(p *domain.Product, filter domain.ProductFilter) bool {
	if len(filter.Platforms) > 0 {
		found := false
		for _, platform := range filter.Platforms {
			if strings.EqualFold(string(platform), string(p.Platform)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.MinTrendScore > 0 && p.TrendScore < filter.MinTrendScore {
		return false
	}
	if filter.FirstSeenFrom != nil && p.FirstSeen.Before(*filter.FirstSeenFrom) {
		return false
	}
	if filter.LastSeenUntil != nil && p.LastSeen.After(*filter.LastSeenUntil) {
		return false
	}
	return true
}

// MetricHistory returns the most recent limit snapshots for a product,
// ascending by capture time.
func (s *ProductStore) MetricHistory(ctx context.Context, productID int64, limit int) ([]domain.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.metrics[productID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	history := make([]domain.MetricSnapshot, len(all)-start)
	copy(history, all[start:])
	return history, nil
}

// UpdateStatus sets the curation status of a product.
func (s *ProductStore) UpdateStatus(ctx context.Context, productID int64, status domain.ProductStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byKey {
		if p.ID == productID {
			p.Status = status
			return nil
		}
	}
	return storage.ErrNotFound
}

// UpdateNotes sets the curator notes on a product.
func (s *ProductStore) UpdateNotes(ctx context.Context, productID int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byKey {
		if p.ID == productID {
			n := notes
			p.Notes = &n
			return nil
		}
	}
	return storage.ErrNotFound
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
