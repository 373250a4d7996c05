package domain

import "time"

// Platform identifies a source site the pipeline scrapes.
type Platform string

const (
	PlatformAmazon     Platform = "amazon"
	PlatformAliExpress Platform = "aliexpress"
	PlatformReddit     Platform = "reddit"
)

// AllPlatforms lists every platform the pipeline knows about, in run order.
var AllPlatforms = []Platform{PlatformAmazon, PlatformAliExpress, PlatformReddit}

// ProductStatus is the curation state of a tracked product. It is mutated
// only by external curator actions, never by the pipeline itself.
type ProductStatus string

const (
	StatusNew            ProductStatus = "new"
	StatusResearching    ProductStatus = "researching"
	StatusOrderedSamples ProductStatus = "ordered_samples"
	StatusTesting        ProductStatus = "testing"
	StatusLive           ProductStatus = "live"
	StatusPass           ProductStatus = "pass"
	StatusSaturated      ProductStatus = "saturated"
)

// Product is the durable entity tracked across repeated scrapes. Exactly one
// row exists per identity key; FirstSeen is set once and never mutated.
type Product struct {
	ID          int64
	Name        string
	Platform    Platform
	IdentityKey string
	ImageURL    *string
	Description *string
	FirstSeen   time.Time
	LastSeen    time.Time
	TrendScore  float64
	Status      ProductStatus
	Notes       *string
}

// MetricSnapshot is one time-stamped observation of a product's counters.
// Rows are append-only; they are never updated or deleted.
type MetricSnapshot struct {
	ID         int64
	ProductID  int64
	CapturedAt time.Time
	Reviews    *int
	Rating     *float64
	Orders     *int
	Votes      *int
	Price      *float64
	Comments   *int
}

// SourceLink records one URL/platform a product was seen at. Many links may
// reference the same product.
type SourceLink struct {
	ID        int64
	ProductID int64
	Platform  Platform
	URL       string
	FoundAt   time.Time
}

// ProductFilter narrows ListProducts results. Zero values mean "no bound";
// an empty Platforms slice matches all platforms.
type ProductFilter struct {
	Platforms     []Platform
	MinTrendScore float64
	FirstSeenFrom *time.Time
	LastSeenUntil *time.Time
	Limit         int
}
