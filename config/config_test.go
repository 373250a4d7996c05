package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendradar/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, "http://localhost:3000", cfg.ChromeAddr)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 45*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 25*time.Second, cfg.SelectorTimeout)
	assert.Equal(t, 2*time.Second, cfg.MinDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 25, cfg.MaxCandidates)
	assert.Equal(t, []string{"shutupandtakemymoney", "ineeeedit"}, cfg.RedditSubreddits)
	assert.Equal(t, 30*time.Minute, cfg.SourceBlockTime)

	assert.Equal(t, 12.0, cfg.ScrapeIntervalHours[domain.PlatformAmazon])
	assert.Equal(t, 12.0, cfg.ScrapeIntervalHours[domain.PlatformAliExpress])
	assert.Equal(t, 6.0, cfg.ScrapeIntervalHours[domain.PlatformReddit])

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TRENDRADAR_MAX_ITEMS", "10")
	t.Setenv("TRENDRADAR_DELAY_MIN", "0.5")
	t.Setenv("TRENDRADAR_DELAY_MAX", "1.5")
	t.Setenv("TRENDRADAR_REDDIT_SUBREDDITS", "gadgets, deals")
	t.Setenv("TRENDRADAR_REDDIT_INTERVAL_HOURS", "2")
	t.Setenv("TRENDRADAR_HEADLESS", "false")

	cfg := LoadConfig()

	assert.Equal(t, 10, cfg.MaxCandidates)
	assert.Equal(t, 500*time.Millisecond, cfg.MinDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.MaxDelay)
	assert.Equal(t, []string{"gadgets", "deals"}, cfg.RedditSubreddits)
	assert.Equal(t, 2.0, cfg.ScrapeIntervalHours[domain.PlatformReddit])
	assert.False(t, cfg.Headless)
}

func TestLoadConfigUnparseableDelayFallsBackToDefaults(t *testing.T) {
	t.Setenv("TRENDRADAR_DELAY_MIN", "fast")
	t.Setenv("TRENDRADAR_DELAY_MAX", "3,5")

	cfg := LoadConfig()

	assert.Equal(t, 2*time.Second, cfg.MinDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := LoadConfig()

	cfg := base
	cfg.DatabaseDSN = ""
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.MinDelay = 5 * time.Second
	cfg.MaxDelay = 2 * time.Second
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.MaxCandidates = 0
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.SelectorTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.RedditSubreddits = nil
	assert.Error(t, cfg.Validate())
}

func TestRandomDelayStaysInBounds(t *testing.T) {
	cfg := Config{MinDelay: 10 * time.Millisecond, MaxDelay: 30 * time.Millisecond}

	for i := 0; i < 100; i++ {
		d := cfg.RandomDelay()
		assert.GreaterOrEqual(t, d, cfg.MinDelay)
		assert.Less(t, d, cfg.MaxDelay)
	}

	fixed := Config{MinDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, fixed.RandomDelay())
}

func TestRedditURLs(t *testing.T) {
	cfg := Config{RedditSubreddits: []string{"shutupandtakemymoney", "ineeeedit"}}

	urls := cfg.RedditURLs()
	require.Len(t, urls, 2)
	assert.Equal(t, "https://www.reddit.com/r/shutupandtakemymoney/rising/", urls[0])
	assert.Equal(t, "https://www.reddit.com/r/ineeeedit/rising/", urls[1])
}
