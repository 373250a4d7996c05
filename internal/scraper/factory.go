package scraper

import (
	"trendradar/config"
	"trendradar/internal/domain"
)

// CreateAdapters builds the adapters for the requested platforms. An empty
// platform list yields every known adapter, in the canonical run order.
func CreateAdapters(cfg config.Config, platforms []domain.Platform) []Adapter {
	if len(platforms) == 0 {
		platforms = domain.AllPlatforms
	}

	var adapters []Adapter
	for _, p := range platforms {
		switch p {
		case domain.PlatformAmazon:
			adapters = append(adapters, NewAmazonAdapter(cfg))
		case domain.PlatformAliExpress:
			adapters = append(adapters, NewAliExpressAdapter(cfg))
		case domain.PlatformReddit:
			adapters = append(adapters, NewRedditAdapter(cfg))
		}
	}
	return adapters
}
