// Package app wires the cache, the remote source and the coordinator from a
// Config. Both binaries build on it.
package app

import (
	"context"
	"fmt"

	"github.com/vytor/lingoflash/internal/config"
	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/db"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/network"
	"github.com/vytor/lingoflash/internal/remote"
	"github.com/vytor/lingoflash/internal/remote/rest"
	"github.com/vytor/lingoflash/internal/remote/sqlstore"
	"github.com/vytor/lingoflash/internal/repository"
	"github.com/vytor/lingoflash/internal/repository/sqlite"
	"github.com/vytor/lingoflash/internal/services"
)

type App struct {
	Config      config.Config
	DB          *db.DB
	Cache       repository.CacheStore
	Remote      remote.DataSource
	Monitor     *network.Monitor
	Coordinator *coordinator.Coordinator
	Content     services.ContentService

	closers []func() error
}

// New opens the local cache and the configured remote. The remote being
// unreachable is not an error; the monitor starts offline and the first
// successful probe flips it online.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx).WithPrefix("app")
	a := &App{Config: cfg}

	database, err := db.Open(cfg.CacheDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)
	a.Cache = sqlite.NewCacheStore(database.DB)

	src, err := openRemote(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Remote = src
	log.Info("remote configured: driver=%s", cfg.RemoteDriver)

	a.Monitor = network.NewMonitor(src, cfg.ProbeInterval, network.WithLogger(logger.FromContext(ctx)))
	if store, ok := src.(*sqlstore.Store); ok {
		a.closers = append(a.closers, store.Close)
		a.Monitor.OnReconnect(func() {
			if err := store.EnsureSchema(context.Background()); err != nil {
				log.Warn("remote schema check failed: %v", err)
			}
		})
	}

	a.Coordinator = coordinator.New(a.Cache, src, a.Monitor, coordinator.WithTTL(cfg.CacheTTL))
	a.Content = services.NewContentService(src, a.Cache)
	return a, nil
}

func openRemote(ctx context.Context, cfg config.Config) (remote.DataSource, error) {
	switch cfg.RemoteDriver {
	case config.RemoteDriverREST:
		return rest.New(cfg.RemoteURL, cfg.RemoteAPIKey, rest.WithRateLimit(float64(cfg.RemoteRateLimit), cfg.RemoteRateLimit)), nil
	case config.RemoteDriverPostgres, config.RemoteDriverMySQL, config.RemoteDriverSQLite:
		store, err := sqlstore.Open(cfg.RemoteDriver, cfg.RemoteDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open remote: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.RemoteDriver)
	}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
