package scraper

import (
	"github.com/PuerkitoBio/goquery"

	"trendradar/internal/domain"
)

// CandidateRecord is the ephemeral product data parsed from one page visit.
// It is created by an adapter and discarded after scoring and persistence.
type CandidateRecord struct {
	Name        string
	URL         string
	Platform    domain.Platform
	ImageURL    *string
	Description *string
	Price       *float64
	Currency    *string
	Rating      *float64
	Reviews     *int
	Orders      *int
	Votes       *int
	Comments    *int
	Badges      []string
	Metadata    map[string]string
}

// Metric builds the snapshot row for this observation.
func (c CandidateRecord) Metric() domain.MetricSnapshot {
	return domain.MetricSnapshot{
		Reviews:  c.Reviews,
		Rating:   c.Rating,
		Orders:   c.Orders,
		Votes:    c.Votes,
		Price:    c.Price,
		Comments: c.Comments,
	}
}

// Adapter is the per-platform parse capability. Implementations own their
// selector configuration and anti-noise filter.
type Adapter interface {
	// Platform returns the platform this adapter scrapes
	Platform() domain.Platform

	// StartURLs returns the pages to fetch for one run
	StartURLs() []string

	// WaitSelectors returns the selectors of which at least one must appear
	// before the page is considered rendered
	WaitSelectors() []string

	// Parse extracts candidate records from a fetched page
	Parse(doc *goquery.Document, sourceURL string) []CandidateRecord
}

// FilterFunc is a per-platform anti-saturation / anti-noise predicate.
// Returning false drops the candidate.
type FilterFunc func(*CandidateRecord) bool

// EnrichFunc customizes a parsed record with platform-specific fields
// before filtering.
type EnrichFunc func(s *goquery.Selection, rec *CandidateRecord)

// SelectorConfig contains the CSS selectors for product fields on one
// platform. Empty selectors mean the field is not present on that platform.
type SelectorConfig struct {
	Container string
	Name      string
	Link      string
	Price     string
	Image     string
	Reviews   string
	Rating    string
	Orders    string
	Votes     string
	Comments  string
	// Badge name to selector
	Badges map[string]string
	// Origin for resolving relative links, e.g. "https://www.amazon.com"
	Origin string
}

// AdapterConfig contains everything needed to build a selector-driven adapter
type AdapterConfig struct {
	Platform      domain.Platform
	StartURLs     []string
	WaitSelectors []string
	Selectors     SelectorConfig
	MaxCandidates int
	Filter        FilterFunc
	Enrich        EnrichFunc
}
