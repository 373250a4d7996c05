package scraper

import (
	"trendradar/config"
	"trendradar/internal/domain"
)

// Saturation bounds for the Amazon bestseller feed: anything with this many
// reviews is already mainstream, and low-rated items are noise.
const (
	amazonMaxReviews = 10000
	amazonMinRating  = 4.0
)

// NewAmazonAdapter creates the adapter for the Amazon movers-and-shakers page
func NewAmazonAdapter(cfg config.Config) *SelectorAdapter {
	return NewSelectorAdapter(AdapterConfig{
		Platform:  domain.PlatformAmazon,
		StartURLs: []string{cfg.AmazonURL},
		WaitSelectors: []string{
			"div.p13n-gridRow",
			"div#gridItemRoot",
		},
		Selectors: SelectorConfig{
			Container: "div.p13n-gridRow div.zg-grid-general-faceout, div#gridItemRoot",
			Name:      "span._cDEzb_p13n-sc-css-line-clamp-3_g3dy1, span.p13n-sc-truncate",
			Link:      "a.a-link-normal",
			Price:     "span.p13n-sc-price",
			Image:     "img",
			Rating:    "span.a-icon-alt",
			Reviews:   "span.a-size-small.a-color-secondary",
			Origin:    "https://www.amazon.com",
		},
		MaxCandidates: cfg.MaxCandidates,
		Filter:        amazonFilter,
	})
}

// amazonFilter drops saturated or poorly rated listings
func amazonFilter(rec *CandidateRecord) bool {
	if rec.Reviews != nil && *rec.Reviews > amazonMaxReviews {
		return false
	}
	if rec.Rating != nil && *rec.Rating < amazonMinRating {
		return false
	}
	return true
}
