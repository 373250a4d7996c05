package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"trendradar/config"
	"trendradar/internal/browser"
	"trendradar/internal/domain"
	"trendradar/internal/orchestrator"
	"trendradar/internal/scraper"
	"trendradar/internal/storage"
	"trendradar/internal/storage/migrations"
	"trendradar/internal/storage/postgres"
	"trendradar/logger"
	"trendradar/services/cache"
	"trendradar/services/publisher"
	"trendradar/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	switch os.Args[1] {
	case "run-once":
		runOnce(cfg, os.Args[2:])
	case "run-scheduled":
		runScheduled(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `usage: trendradar <command> [flags]

commands:
  run-once       run one pipeline pass and exit
                   --sources amazon,aliexpress,reddit  restrict sources
                   --export-csv PATH                   export products after the run
  run-scheduled  run the pipeline on its per-platform schedule
                   --interval-hours N                  override every platform interval
`)
}

// runOnce executes a single pipeline pass. Partial source failures are
// reported but exit with status 0; only a run that could not start at all
// exits non-zero.
func runOnce(cfg config.Config, args []string) {
	flags := flag.NewFlagSet("run-once", flag.ExitOnError)
	sourcesFlag := flags.String("sources", "", "comma-separated platforms to scrape (default all)")
	exportFlag := flags.String("export-csv", "", "write all tracked products to this CSV file after the run")
	flags.Parse(args)

	platforms, err := parsePlatforms(*sourcesFlag)
	if err != nil {
		logger.Fatal("%v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := initializeApp(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer app.Cleanup()

	summary := app.Orchestrator.RunPlatforms(ctx, platforms)

	for _, source := range summary.Sources {
		switch {
		case source.Err != nil:
			logger.Error("%s: failed: %v", source.Platform, source.Err)
		case source.Skipped:
			logger.Warn("%s: skipped", source.Platform)
		default:
			logger.Info("%s: harvested=%d persisted=%d discovered=%d",
				source.Platform, source.Harvested, source.Persisted, source.Discovered)
		}
	}
	logger.Info("Run complete: %d harvested, %d persisted, %d sources failed",
		summary.TotalHarvested(), summary.TotalPersisted(), len(summary.Failed()))

	if *exportFlag != "" {
		if err := storage.ExportCSVFile(ctx, app.Store, *exportFlag, domain.ProductFilter{}); err != nil {
			logger.Fatal("CSV export failed: %v", err)
		}
		logger.Info("Exported products to %s", *exportFlag)
	}
}

// runScheduled runs the pipeline on its per-platform schedule until
// interrupted.
func runScheduled(cfg config.Config, args []string) {
	flags := flag.NewFlagSet("run-scheduled", flag.ExitOnError)
	intervalFlag := flags.Float64("interval-hours", 0, "override every platform's interval in hours")
	flags.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	app, err := initializeApp(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer app.Cleanup()

	intervals := worker.IntervalsFromHours(cfg.ScrapeIntervalHours, *intervalFlag)
	w := worker.NewWorker(app.Orchestrator.RunPlatforms, app.Publisher, intervals)

	logger.Info("Starting scheduled worker (environment: %s)", cfg.Environment)
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Worker exited: %v", err)
	}
	logger.Info("Worker stopped")
}

// App holds the wired pipeline components.
type App struct {
	Store        storage.ProductStore
	Orchestrator *orchestrator.Orchestrator
	Publisher    publisher.Publisher

	pool *postgres.Pool
}

// Cleanup releases all held connections.
func (a *App) Cleanup() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// initializeApp connects storage, cache, publisher and browser sessions and
// wires the orchestrator. An unreachable database is fatal; cache and
// publisher degrade to local no-op behavior.
func initializeApp(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	store := postgres.NewProductStore(pool)
	logger.Info("Connected to Postgres")

	var cacheService cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheService = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Using Memcache at %s for the source block list", cfg.MemcacheAddr)
	} else {
		cacheService = cache.NewMemoryService()
		logger.Info("Using in-process source block list")
	}
	blocks := cache.NewBlockList(cacheService, cfg.SourceBlockTime)

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		pub = publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB,
			cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
		logger.Info("Publishing discoveries to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	adapters := scraper.CreateAdapters(cfg, nil)
	if len(adapters) == 0 {
		pool.Close()
		return nil, fmt.Errorf("no source adapters were created")
	}

	sessions := browser.NewManager(cfg)
	orch := orchestrator.New(cfg, sessions, adapters, store, blocks, pub)

	return &App{
		Store:        store,
		Orchestrator: orch,
		Publisher:    pub,
		pool:         pool,
	}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal: %s", sig.String())
		cancel()
	}()

	return ctx, cancel
}

// parsePlatforms validates a comma-separated platform list. Empty input
// selects all platforms.
func parsePlatforms(value string) ([]domain.Platform, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var platforms []domain.Platform
	for _, part := range strings.Split(value, ",") {
		name := domain.Platform(strings.ToLower(strings.TrimSpace(part)))
		valid := false
		for _, known := range domain.AllPlatforms {
			if name == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unknown source %q (valid: amazon, aliexpress, reddit)", part)
		}
		platforms = append(platforms, name)
	}
	return platforms, nil
}
