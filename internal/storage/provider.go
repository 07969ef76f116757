// Package storage selects and opens the key-value state store backend.
// Implementations live in the subpackages; all satisfy watcher.StateStore.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/config"
	"github.com/JakeFAU/pagewatch/internal/storage/gcs"
	"github.com/JakeFAU/pagewatch/internal/storage/local"
	"github.com/JakeFAU/pagewatch/internal/storage/memory"
	"github.com/JakeFAU/pagewatch/internal/storage/postgres"
	"github.com/JakeFAU/pagewatch/internal/storage/redis"
	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// Store is a state store that holds resources until closed.
type Store interface {
	watcher.StateStore
	Close() error
}

// Open builds the backend named by cfg.Provider.
func Open(ctx context.Context, cfg config.StateConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		store Store
		err   error
	)
	switch cfg.Provider {
	case config.StateProviderMemory:
		store = memory.NewStateStore()
	case config.StateProviderLocal:
		store, err = local.New(local.Config{BaseDir: cfg.Local.BaseDir, Namespace: cfg.Namespace})
	case config.StateProviderRedis:
		store, err = redis.New(ctx, redis.Config{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Namespace,
		})
	case config.StateProviderPostgres:
		store, err = postgres.New(ctx, postgres.Config{
			DSN:       cfg.Postgres.DSN,
			Table:     cfg.Postgres.Table,
			Namespace: cfg.Namespace,
			MaxConns:  cfg.Postgres.MaxConns,
		})
	case config.StateProviderGCS:
		store, err = gcs.Open(ctx, gcs.Config{
			Bucket:    cfg.GCS.Bucket,
			Prefix:    cfg.GCS.Prefix,
			Namespace: cfg.Namespace,
			Endpoint:  cfg.GCS.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown state provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s state store: %w", cfg.Provider, err)
	}
	logger.Info("state store ready",
		zap.String("provider", cfg.Provider),
		zap.String("namespace", cfg.Namespace),
	)
	return store, nil
}
