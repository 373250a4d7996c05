package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendradar/config"
	"trendradar/internal/browser"
	"trendradar/internal/domain"
	"trendradar/internal/scoring"
	"trendradar/internal/scraper"
	"trendradar/internal/storage"
	"trendradar/logger"
	apperrors "trendradar/pkg/errors"
	"trendradar/services/cache"
	"trendradar/services/publisher"
)

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	Platform   domain.Platform
	Harvested  int
	Persisted  int
	Discovered int
	Skipped    bool
	Err        error
}

// RunSummary aggregates per-source results for one pipeline run. A failed
// source shows up here instead of failing the run.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceResult
}

// TotalHarvested sums harvested candidates across sources.
func (r RunSummary) TotalHarvested() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Harvested
	}
	return total
}

// TotalPersisted sums persisted candidates across sources.
func (r RunSummary) TotalPersisted() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Persisted
	}
	return total
}

// Failed returns the sources that ended in an error.
func (r RunSummary) Failed() []SourceResult {
	var failed []SourceResult
	for _, s := range r.Sources {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Orchestrator drives one full pipeline run: each source gets its own
// browser session, parse pass, scoring and persistence. Sources run
// sequentially and never share a session.
type Orchestrator struct {
	cfg      config.Config
	sessions *browser.Manager
	adapters []scraper.Adapter
	store    storage.ProductStore
	blocks   *cache.BlockList
	pub      publisher.Publisher
	log      *logger.Logger
}

// New creates an orchestrator. blocks and pub may be nil; the corresponding
// behaviors (challenge back-off across runs, discovery announcements) are
// then disabled.
func New(cfg config.Config, sessions *browser.Manager, adapters []scraper.Adapter, store storage.ProductStore, blocks *cache.BlockList, pub publisher.Publisher) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		adapters: adapters,
		store:    store,
		blocks:   blocks,
		pub:      pub,
		log:      logger.ForOrchestrator(),
	}
}

// Run executes one pipeline pass over all configured sources. A source
// failure is recorded in the summary and the remaining sources still run;
// only context cancellation stops the loop early.
func (o *Orchestrator) Run(ctx context.Context) RunSummary {
	return o.RunPlatforms(ctx, nil)
}

// RunPlatforms executes one pass restricted to the given platforms. An empty
// list means all configured sources.
func (o *Orchestrator) RunPlatforms(ctx context.Context, platforms []domain.Platform) RunSummary {
	summary := RunSummary{StartedAt: time.Now().UTC()}

	for _, adapter := range o.adapters {
		platform := adapter.Platform()
		if !platformSelected(platform, platforms) {
			continue
		}

		if err := ctx.Err(); err != nil {
			summary.Sources = append(summary.Sources, SourceResult{
				Platform: platform,
				Skipped:  true,
				Err:      err,
			})
			continue
		}

		if o.blocks.IsBlocked(platform) {
			o.log.Warn().Str("platform", string(platform)).Msg("Source is blocked after a recent challenge, skipping")
			summary.Sources = append(summary.Sources, SourceResult{Platform: platform, Skipped: true})
			continue
		}

		result := o.runSource(ctx, adapter)
		summary.Sources = append(summary.Sources, result)

		if result.Err != nil {
			o.log.Error().Err(result.Err).Str("platform", string(platform)).Msg("Source run failed")
		} else {
			o.log.Info().
				Str("platform", string(platform)).
				Int("harvested", result.Harvested).
				Int("persisted", result.Persisted).
				Int("discovered", result.Discovered).
				Msg("Source run complete")
		}
	}

	summary.FinishedAt = time.Now().UTC()
	return summary
}

func platformSelected(platform domain.Platform, selected []domain.Platform) bool {
	if len(selected) == 0 {
		return true
	}
	for _, p := range selected {
		if p == platform {
			return true
		}
	}
	return false
}

// runSource processes one source inside a dedicated browser session. A panic
// in the adapter or session is converted to a source error so the rest of
// the run survives.
func (o *Orchestrator) runSource(ctx context.Context, adapter scraper.Adapter) (result SourceResult) {
	platform := adapter.Platform()
	result = SourceResult{Platform: platform}

	defer func() {
		if r := recover(); r != nil {
			result.Err = apperrors.NewSession(string(platform), fmt.Sprintf("panic during source run: %v", r), nil)
		}
	}()

	result.Err = o.sessions.WithSession(ctx, string(platform), func(session *browser.Session) error {
		for _, url := range adapter.StartURLs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.processPage(ctx, session, adapter, url, &result); err != nil {
				return err
			}
		}
		return nil
	})
	return result
}

// processPage fetches one start URL, verifies it is not a challenge page,
// waits for the content selectors and persists the parsed candidates. A
// detected challenge blocks the platform and aborts with zero store writes
// for the page.
func (o *Orchestrator) processPage(ctx context.Context, session *browser.Session, adapter scraper.Adapter, url string, result *SourceResult) error {
	platform := adapter.Platform()
	log := o.log.WithField("platform", string(platform)).WithField("url", url)

	html, err := session.Fetch(ctx, url)
	if err != nil {
		return err
	}

	if marker, found := scraper.DetectChallenge(html); found {
		log.Warn().Str("marker", marker).Msg("Bot challenge detected, backing off")
		o.blocks.Block(platform)
		session.CaptureArtifacts(ctx, url)
		return apperrors.NewChallenge(string(platform), marker)
	}

	html, err = session.WaitForAny(ctx, adapter.WaitSelectors())
	if err != nil {
		if apperrors.IsFetchTimeout(err) {
			session.CaptureArtifacts(ctx, url)
		}
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return apperrors.NewParsing(string(platform), "failed to parse page HTML", err)
	}

	candidates := adapter.Parse(doc, url)
	result.Harvested += len(candidates)
	log.Debug().Int("candidates", len(candidates)).Msg("Parsed page")

	if logger.IsDebugEnabled() && len(candidates) > 0 {
		o.dumpCandidates(platform, candidates)
	}

	for _, candidate := range candidates {
		created, err := o.persist(ctx, candidate)
		if err != nil {
			// one broken candidate must not sink the rest of the page
			log.Error().Err(err).Str("name", candidate.Name).Msg("Failed to persist candidate")
			continue
		}
		result.Persisted++
		if created {
			result.Discovered++
		}
	}
	return nil
}

// persist scores one candidate against its prior and writes it atomically.
// Returns whether the product was newly discovered.
func (o *Orchestrator) persist(ctx context.Context, candidate scraper.CandidateRecord) (bool, error) {
	var prior *float64
	existing, err := o.store.GetByIdentityKey(ctx, candidate.URL)
	switch {
	case err == nil:
		prior = &existing.TrendScore
	case errors.Is(err, storage.ErrNotFound):
		// first observation, no prior to blend
	default:
		return false, apperrors.NewStoreWrite(string(candidate.Platform), "failed to look up prior score", err)
	}

	score := scoring.Score(candidate, prior)

	upsert, err := o.store.Record(ctx, candidate, score)
	if err != nil {
		return false, apperrors.NewStoreWrite(string(candidate.Platform), "failed to record candidate", err)
	}

	if upsert.Created {
		o.announce(ctx, candidate, upsert.ProductID, score)
	}
	return upsert.Created, nil
}

// announce publishes a newly discovered product. Publish failures are
// logged; discovery announcements are best-effort.
func (o *Orchestrator) announce(ctx context.Context, candidate scraper.CandidateRecord, productID int64, score float64) {
	if o.pub == nil {
		return
	}
	product, err := o.store.GetByIdentityKey(ctx, candidate.URL)
	if err != nil {
		product = &domain.Product{
			ID:          productID,
			Name:        candidate.Name,
			Platform:    candidate.Platform,
			IdentityKey: candidate.URL,
			TrendScore:  score,
			FirstSeen:   time.Now().UTC(),
		}
	}
	if err := o.pub.PublishDiscovery(*product); err != nil {
		o.log.Warn().Err(err).Str("identity_key", candidate.URL).Msg("Failed to publish discovery")
	}
}

// dumpCandidates writes the parsed candidates of one page as a JSON
// artifact under the data dir. Dump failures are logged and ignored.
func (o *Orchestrator) dumpCandidates(platform domain.Platform, candidates []scraper.CandidateRecord) {
	dir := filepath.Join(o.cfg.DataDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.log.Debug().Err(err).Msg("Failed to create debug dir")
		return
	}
	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		o.log.Debug().Err(err).Msg("Failed to marshal candidates")
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("candidates_%s_%d.json", platform, time.Now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.log.Debug().Err(err).Str("path", path).Msg("Failed to write candidate dump")
	}
}
