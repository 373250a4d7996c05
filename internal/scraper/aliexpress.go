package scraper

import (
	"trendradar/config"
	"trendradar/internal/domain"
)

// Listings past this order count are mainstream rather than emerging.
const aliexpressMaxOrders = 1000

// NewAliExpressAdapter creates the adapter for the AliExpress trending page
func NewAliExpressAdapter(cfg config.Config) *SelectorAdapter {
	return NewSelectorAdapter(AdapterConfig{
		Platform:  domain.PlatformAliExpress,
		StartURLs: []string{cfg.AliExpressURL},
		WaitSelectors: []string{
			"div.JIIxO",
			"div.list-item",
		},
		Selectors: SelectorConfig{
			Container: "div.JIIxO, div.list-item",
			Name:      "a._3t7zg, a.item-title",
			Link:      "a._3t7zg, a.item-title",
			Price:     "div._1NoI8, span.price",
			Image:     "img",
			Rating:    "span._1cE1T",
			Orders:    "span._1kNf9, span.item-sold",
			Origin:    "https://www.aliexpress.com",
		},
		MaxCandidates: cfg.MaxCandidates,
		Filter:        aliexpressFilter,
	})
}

// aliexpressFilter drops already mainstream listings
func aliexpressFilter(rec *CandidateRecord) bool {
	if rec.Orders != nil && *rec.Orders > aliexpressMaxOrders {
		return false
	}
	return true
}
