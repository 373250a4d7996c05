package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendradar/internal/domain"
	"trendradar/logger"
)

// SelectorAdapter is a selector-driven adapter. All platform variants share
// this implementation and differ only in their AdapterConfig.
type SelectorAdapter struct {
	cfg AdapterConfig
	log *logger.Logger
}

// NewSelectorAdapter creates an adapter from a platform configuration
func NewSelectorAdapter(cfg AdapterConfig) *SelectorAdapter {
	return &SelectorAdapter{
		cfg: cfg,
		log: logger.ForScraper(string(cfg.Platform)),
	}
}

// Platform returns the platform this adapter scrapes
func (a *SelectorAdapter) Platform() domain.Platform {
	return a.cfg.Platform
}

// StartURLs returns the pages to fetch for one run
func (a *SelectorAdapter) StartURLs() []string {
	return a.cfg.StartURLs
}

// WaitSelectors returns the page-rendered markers for this platform
func (a *SelectorAdapter) WaitSelectors() []string {
	return a.cfg.WaitSelectors
}

// Parse extracts candidate records from a fetched page. Candidates keep
// document order; container nodes beyond the configured cap are ignored.
func (a *SelectorAdapter) Parse(doc *goquery.Document, sourceURL string) []CandidateRecord {
	var records []CandidateRecord

	doc.Find(a.cfg.Selectors.Container).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if a.cfg.MaxCandidates > 0 && i >= a.cfg.MaxCandidates {
			return false
		}

		rec := a.parseOne(s, sourceURL)
		if rec == nil {
			return true
		}
		if a.cfg.Enrich != nil {
			a.cfg.Enrich(s, rec)
		}
		if a.cfg.Filter != nil && !a.cfg.Filter(rec) {
			a.log.Debug().Str("name", rec.Name).Msg("Candidate dropped by platform filter")
			return true
		}

		records = append(records, *rec)
		return true
	})

	a.log.Info().
		Int("count", len(records)).
		Str("source_url", sourceURL).
		Msg("Parsed candidates")

	return records
}

// parseOne extracts a single record from a container node. A missing name or
// link selector aborts the record; any other missing or malformed field is
// left nil.
func (a *SelectorAdapter) parseOne(s *goquery.Selection, sourceURL string) *CandidateRecord {
	sel := a.cfg.Selectors

	name := strings.TrimSpace(s.Find(sel.Name).First().Text())
	if name == "" {
		return nil
	}

	link := sourceURL
	if linkSel := s.Find(sel.Link).First(); linkSel.Length() > 0 {
		if href, exists := linkSel.Attr("href"); exists && strings.TrimSpace(href) != "" {
			link = ResolveURL(href, sel.Origin)
		}
	}
	if link == "" {
		return nil
	}

	rec := &CandidateRecord{
		Name:     name,
		URL:      link,
		Platform: a.cfg.Platform,
		Metadata: map[string]string{
			"source_url":  sourceURL,
			"captured_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if sel.Price != "" {
		rec.Price, rec.Currency = ParsePrice(s.Find(sel.Price).First().Text())
	}
	if sel.Image != "" {
		if src, exists := s.Find(sel.Image).First().Attr("src"); exists && src != "" {
			resolved := ResolveURL(src, sel.Origin)
			rec.ImageURL = &resolved
		}
	}
	if sel.Rating != "" {
		rec.Rating = ParseRating(s.Find(sel.Rating).First().Text())
	}
	if sel.Reviews != "" {
		rec.Reviews = ParseCount(s.Find(sel.Reviews).First().Text())
	}
	if sel.Orders != "" {
		rec.Orders = ParseCount(s.Find(sel.Orders).First().Text())
	}
	if sel.Votes != "" {
		rec.Votes = ParseCount(s.Find(sel.Votes).First().Text())
	}
	if sel.Comments != "" {
		rec.Comments = ParseCount(s.Find(sel.Comments).First().Text())
	}

	for _, badgeSel := range sel.Badges {
		s.Find(badgeSel).Each(func(_ int, b *goquery.Selection) {
			if text := strings.TrimSpace(b.Text()); text != "" {
				rec.Badges = append(rec.Badges, text)
			}
		})
	}

	return rec
}
