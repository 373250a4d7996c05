package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trendradar/config"
	"trendradar/internal/domain"
)

// Posts under this vote count carry too little signal to track.
const redditMinVotes = 100

const redditSubredditSelector = "a[data-click-id='subreddit'], a[data-testid='subreddit-name']"

// NewRedditAdapter creates the adapter for the configured subreddit rising feeds
func NewRedditAdapter(cfg config.Config) *SelectorAdapter {
	return NewSelectorAdapter(AdapterConfig{
		Platform:  domain.PlatformReddit,
		StartURLs: cfg.RedditURLs(),
		WaitSelectors: []string{
			"div[data-testid='post-container']",
			"div.Post",
		},
		Selectors: SelectorConfig{
			Container: "div[data-testid='post-container'], div.Post",
			Name:      "h3",
			Link:      "a[data-click-id='body'], a[data-testid='post-container']",
			Votes:     "div[data-testid='upvoteRatio'], div[data-click-id='upvote'] span, div._1rZYMD_4xY3gRcSS3p8ODO",
			Comments:  "span[data-testid='comments-page-link-num-comments'], span.FHCV02u6Cp2zYL0fhQPsO",
			Badges: map[string]string{
				"subreddit": redditSubredditSelector,
			},
			Origin: "https://www.reddit.com",
		},
		MaxCandidates: cfg.MaxCandidates,
		Filter:        redditFilter,
		Enrich:        redditEnrich,
	})
}

// redditFilter drops posts whose vote count is present but too low
func redditFilter(rec *CandidateRecord) bool {
	if rec.Votes != nil && *rec.Votes < redditMinVotes {
		return false
	}
	return true
}

// redditEnrich records the subreddit and the cross-platform discovery marker
func redditEnrich(s *goquery.Selection, rec *CandidateRecord) {
	rec.Metadata["discovered_via"] = "reddit"

	if subreddit := strings.TrimSpace(s.Find(redditSubredditSelector).First().Text()); subreddit != "" {
		rec.Metadata["subreddit"] = subreddit
	}

	if age := strings.TrimSpace(s.Find("a[data-click-id='timestamp']").First().Text()); age != "" && rec.Votes != nil {
		desc := fmt.Sprintf("Reddit post captured at %s", age)
		rec.Description = &desc
	}
}
