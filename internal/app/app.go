package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/mtgportal-cron/internal/adapter/postgres"
	"github.com/heartmarshall/mtgportal-cron/internal/adapter/postgres/cardtable"
	"github.com/heartmarshall/mtgportal-cron/internal/adapter/scryfall"
	"github.com/heartmarshall/mtgportal-cron/internal/app/refresh"
	"github.com/heartmarshall/mtgportal-cron/internal/app/refresh/decoder"
	"github.com/heartmarshall/mtgportal-cron/internal/config"
	"github.com/heartmarshall/mtgportal-cron/internal/metrics"
)

// Compile-time interface assertions.
var (
	_ refresh.Locator    = (*scryfall.Locator)(nil)
	_ refresh.Fetcher    = (*scryfall.Fetcher)(nil)
	_ refresh.CardStore  = (*cardtable.Repo)(nil)
	_ refresh.UnitOfWork = (*postgres.Unit)(nil)
	_ refresh.Recorder   = (*metrics.Recorder)(nil)
)

// Options are command-line overrides applied on top of the loaded config.
type Options struct {
	DryRun bool
}

// Run is the application entry point. It loads configuration, initializes
// the logger, wires the refresh pipeline and performs one run.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(func(c *config.Config) {
		if opts.DryRun {
			c.Refresh.DryRun = true
		}
	})
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting refresh",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("live_table", cfg.Refresh.LiveTable),
		slog.Int("batch_size", cfg.Refresh.BatchSize),
	)

	if cfg.Refresh.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Refresh.RunTimeout)
		defer cancel()
	}

	orch, closeFn, err := newOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = orch.Run(ctx)
	return err
}

// newOrchestrator wires the refresh pipeline. Dry runs never open a
// database connection.
func newOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*refresh.Orchestrator, func(), error) {
	userAgent := cfg.Scryfall.UserAgent
	if userAgent == "" {
		userAgent = UserAgent()
	}

	deps := refresh.Deps{
		Locator: scryfall.NewLocator(cfg.Scryfall, userAgent, logger),
		Fetcher: scryfall.NewFetcher(cfg.Refresh.DownloadDir, userAgent, logger),
		Open:    OpenPayload,
		Metrics: metrics.NewRecorder(cfg.Metrics),
	}
	opts := refresh.Options{
		BatchSize:        cfg.Refresh.BatchSize,
		DryRun:           cfg.Refresh.DryRun,
		CleanupDownloads: cfg.Refresh.CleanupDownloads,
	}

	if cfg.Refresh.DryRun {
		return refresh.NewOrchestrator(deps, opts, logger), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	repo, err := cardtable.New(pool, cfg.Refresh.StagingTable, cfg.Refresh.LiveTable)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	deps.Store = repo
	deps.Begin = BeginFunc(postgres.NewTxManager(pool))

	return refresh.NewOrchestrator(deps, opts, logger), pool.Close, nil
}

// OpenPayload opens a bulk JSON payload with the streaming decoder.
func OpenPayload(path string) (refresh.RecordSource, error) {
	s, err := decoder.Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BeginFunc adapts a TxManager to refresh.BeginFunc.
func BeginFunc(txm *postgres.TxManager) refresh.BeginFunc {
	return func(ctx context.Context) (refresh.UnitOfWork, error) {
		unit, err := txm.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return unit, nil
	}
}
