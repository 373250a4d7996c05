package worker

import (
	"context"
	"time"

	"trendradar/internal/domain"
	"trendradar/internal/orchestrator"
	"trendradar/logger"
	"trendradar/services/publisher"
)

// defaultPollInterval is how often the scheduler checks for due platforms.
const defaultPollInterval = 30 * time.Second

// RunFunc executes one pipeline pass for the given platforms.
type RunFunc func(ctx context.Context, platforms []domain.Platform) orchestrator.RunSummary

// Worker runs the pipeline on a per-platform schedule. Each platform has its
// own interval; the first pass for every platform runs immediately on start.
type Worker struct {
	run       RunFunc
	pub       publisher.Publisher
	intervals map[domain.Platform]time.Duration
	poll      time.Duration
	log       *logger.Logger
}

// NewWorker creates a worker. pub may be nil; stream trimming is then
// skipped.
func NewWorker(run RunFunc, pub publisher.Publisher, intervals map[domain.Platform]time.Duration) *Worker {
	return &Worker{
		run:       run,
		pub:       pub,
		intervals: intervals,
		poll:      defaultPollInterval,
		log:       logger.ForWorker(),
	}
}

// Start blocks running the schedule until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	next := make(map[domain.Platform]time.Time, len(w.intervals))

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if due := w.duePlatforms(next, time.Now()); len(due) > 0 {
			w.runBatch(ctx, due, next)
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// duePlatforms returns the platforms whose next run time has passed.
// Platforms never run before are always due.
func (w *Worker) duePlatforms(next map[domain.Platform]time.Time, now time.Time) []domain.Platform {
	var due []domain.Platform
	for _, platform := range domain.AllPlatforms {
		if _, scheduled := w.intervals[platform]; !scheduled {
			continue
		}
		if t, ok := next[platform]; !ok || !now.Before(t) {
			due = append(due, platform)
		}
	}
	return due
}

func (w *Worker) runBatch(ctx context.Context, due []domain.Platform, next map[domain.Platform]time.Time) {
	start := time.Now()
	summary := w.run(ctx, due)

	for _, platform := range due {
		next[platform] = start.Add(w.intervals[platform])
	}

	w.log.Info().
		Int("sources", len(summary.Sources)).
		Int("harvested", summary.TotalHarvested()).
		Int("persisted", summary.TotalPersisted()).
		Int("failed", len(summary.Failed())).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled pass complete")

	if w.pub != nil {
		if err := w.pub.TrimStreams(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to trim discovery streams")
		}
	}
}

// IntervalsFromHours converts per-platform hour settings into durations.
// override > 0 applies the same interval to every platform.
func IntervalsFromHours(hours map[domain.Platform]float64, override float64) map[domain.Platform]time.Duration {
	intervals := make(map[domain.Platform]time.Duration, len(hours))
	for platform, h := range hours {
		if override > 0 {
			h = override
		}
		if h <= 0 {
			continue
		}
		intervals[platform] = time.Duration(h * float64(time.Hour))
	}
	return intervals
}
