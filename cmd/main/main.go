package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Houeta/pricewatch/internal/bot"
	"github.com/Houeta/pricewatch/internal/config"
	"github.com/Houeta/pricewatch/internal/extractor"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/parser"
	"github.com/Houeta/pricewatch/internal/pipeline"
	"github.com/Houeta/pricewatch/internal/platform"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/Houeta/pricewatch/internal/repository/postgres"
	"github.com/Houeta/pricewatch/internal/repository/sqlite"
	"github.com/Houeta/pricewatch/internal/scheduler"
	"github.com/Houeta/pricewatch/internal/services/checker"
	"github.com/Houeta/pricewatch/internal/services/tracker"
	"github.com/joho/godotenv"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// storage is what both repository drivers provide.
type storage interface {
	repository.Store
	repository.Subscriptions
	Close() error
}

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine; the environment may be set otherwise.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	store, err := openStorage(ctx, logger, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	renderer := extractor.NewRodRenderer(logger, extractor.RodOptions{
		Bin:      cfg.Browser.Bin,
		Headless: cfg.Browser.Headless,
	})

	domains := make(map[models.Platform][]string, len(cfg.Platforms))
	for p, pc := range cfg.Platforms {
		domains[p] = pc.Domains
	}
	classifier := platform.NewClassifier(domains)

	extractions, err := buildExtractor(logger, cfg, classifier, renderer)
	if err != nil {
		log.Fatalf("Failed to init extraction chains: %v", err)
	}

	pipe := pipeline.New(logger, classifier, extractions, store)
	trackerService := tracker.NewService(logger, store, pipe)

	priceBot, err := bot.NewBot(logger, cfg.Tg.Token, cfg.Tg.Timeout, trackerService, store)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	priceChecker := checker.NewChecker(logger, pipe, store, priceBot, checker.Options{
		Workers:     cfg.Scheduler.Workers,
		ItemTimeout: cfg.Scheduler.ItemTimeout,
	})

	sched, err := scheduler.New(logger, priceChecker, scheduler.Options{
		Spec:       cfg.Scheduler.Spec,
		RunOnStart: cfg.Scheduler.RunOnStart,
	})
	if err != nil {
		log.Fatalf("Failed to init scheduler: %v", err)
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.",
		"storage", cfg.Storage.Driver, "schedule", cfg.Scheduler.Spec)

	// Start the bot in a goroutine to allow main to listen for signals.
	go priceBot.Start()
	sched.Start(ctx)

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.Info("Shutdown signal received. Stopping application...")

	sched.Stop()
	priceBot.Stop()

	if err = renderer.Close(); err != nil {
		logger.Error("Failed to close renderer", "error", err)
	}
	if err = store.Close(); err != nil {
		logger.Error("Failed to close storage", "error", err)
	}

	// Log graceful shutdown completion.
	logger.Info("Application stopped gracefully.")
}

func openStorage(ctx context.Context, log *slog.Logger, cfg config.Storage) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.NewRepository(ctx, log, cfg.PostgresDSN)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return sqlite.NewRepository(ctx, log, cfg.Path)
	}
}

// buildExtractor assembles the configured strategy chain for every platform.
func buildExtractor(
	log *slog.Logger,
	cfg *config.Config,
	classifier *platform.Classifier,
	renderer extractor.Renderer,
) (*extractor.Service, error) {
	selectors := make(map[models.Platform]parser.Selectors, len(cfg.Platforms))
	for p, pc := range cfg.Platforms {
		selectors[p] = parser.NewSelectors(pc.NameSelectors, pc.PriceSelectors, pc.ImageSelectors)
	}

	available := map[string]extractor.Strategy{
		extractor.StrategyRender: extractor.NewRenderStrategy(renderer, classifier, selectors),
		extractor.StrategyStatic: extractor.NewStaticStrategy(
			parser.NewParser(log, cfg.Extraction.StaticRPS), classifier, selectors,
		),
		extractor.StrategyAPI: extractor.NewFlipkartAPIStrategy(log, extractor.FlipkartAPIOptions{
			Host:    cfg.RapidAPI.Host,
			Key:     cfg.RapidAPI.Key,
			Pincode: cfg.RapidAPI.Pincode,
		}),
	}

	ext := cfg.Extraction
	limits := map[string]extractor.Limits{
		extractor.StrategyRender: {Timeout: ext.RenderTimeout, Attempts: ext.RetryAttempts, Backoff: ext.RetryBackoff},
		extractor.StrategyStatic: {Timeout: ext.StaticTimeout, Attempts: ext.RetryAttempts, Backoff: ext.RetryBackoff},
		extractor.StrategyAPI:    {Timeout: ext.APITimeout, Attempts: ext.RetryAttempts, Backoff: ext.RetryBackoff},
	}

	chains := make(map[models.Platform]*extractor.Chain, len(cfg.Platforms))
	for p, pc := range cfg.Platforms {
		chain, err := extractor.BuildChain(log, pc.Strategies, available, limits)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", p, err)
		}
		chains[p] = chain
		log.Debug("Extraction chain ready", "platform", p, "strategies", chain.Strategies())
	}

	return extractor.NewService(chains), nil
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}

	return a
}
