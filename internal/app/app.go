// Package app builds the long-lived services for one watcher from
// configuration and hands them to the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/clock/system"
	"github.com/JakeFAU/pagewatch/internal/config"
	collyfetcher "github.com/JakeFAU/pagewatch/internal/fetcher/colly"
	"github.com/JakeFAU/pagewatch/internal/hash/sha256"
	"github.com/JakeFAU/pagewatch/internal/id/uuid"
	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/normalize"
	"github.com/JakeFAU/pagewatch/internal/notify"
	"github.com/JakeFAU/pagewatch/internal/schedule"
	"github.com/JakeFAU/pagewatch/internal/storage"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// App holds the shared services. It owns the store and notifier and closes
// them in Close.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	notifier notify.Sink
	checker  *watcher.Checker
	runner   *schedule.Runner
}

// New opens the configured state store and notifier and wires the checker.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing services",
		zap.String("url", cfg.Watch.URL),
		zap.String("state_provider", cfg.State.Provider),
		zap.String("notify_sink", cfg.Notify.Sink),
	)

	notifier, err := notify.Open(ctx, cfg.Notify, cfg.NotifyTimeout(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	store, err := storage.Open(ctx, cfg.State, logger.Named("storage"))
	if err != nil {
		storeErr := &watcher.StoreError{Op: "open", Key: cfg.Watch.StateKey, Err: err}
		reportStartupFailure(ctx, cfg, notifier, storeErr, logger)
		if closeErr := notifier.Close(); closeErr != nil {
			logger.Warn("notifier close failed", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to initialize state store: %w", storeErr)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
	})
	return NewWithDeps(cfg, logger, store, notifier, fetcher), nil
}

// reportStartupFailure sends the failure message for a run that could not
// start, so an unreachable backend does not silence the heartbeat.
func reportStartupFailure(ctx context.Context, cfg config.Config, notifier notify.Sink, cause error, logger *zap.Logger) {
	runID, err := uuid.New().NewID()
	if err != nil {
		logger.Warn("run id generation failed", zap.Error(err))
	}
	logger.Error("page check failed before start",
		zap.String("run_id", runID),
		zap.String("url", cfg.Watch.URL),
		zap.Error(cause),
	)
	metrics.ObserveRun(cfg.Watch.URL, string(watcher.StateFailed), "", 0, time.Now())
	watcher.NotifyFailure(ctx, cfg.WatcherConfig(), notifier, runID, cause, logger.Named("watcher"))
}

// NewWithDeps wires an App around already-built dependencies.
func NewWithDeps(
	cfg config.Config,
	logger *zap.Logger,
	store storage.Store,
	notifier notify.Sink,
	fetcher watcher.Fetcher,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := watcher.New(
		cfg.WatcherConfig(),
		fetcher,
		normalize.New(cfg.Watch.ScopeTag),
		sha256.New(),
		store,
		notifier,
		system.New(),
		uuid.New(),
		logger.Named("watcher"),
	)
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifier,
		checker:  checker,
		runner:   schedule.NewRunner(checker, cfg.Watch.URL, logger.Named("runner")),
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store exposes the state store.
func (a *App) Store() watcher.StateStore { return a.store }

// Runner returns the serialized check runner.
func (a *App) Runner() *schedule.Runner { return a.runner }

// Close releases the notifier and the state store.
func (a *App) Close() error {
	return errors.Join(a.notifier.Close(), a.store.Close())
}
