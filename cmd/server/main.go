package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/lingoflash/internal/api"
	"github.com/vytor/lingoflash/internal/app"
	"github.com/vytor/lingoflash/internal/config"
	"github.com/vytor/lingoflash/internal/jobs"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("LingoFlash Server Starting")
	log.Info("===========================================")
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("cache_db_path=%s", cfg.CacheDBPath)
	log.Debug("remote_driver=%s", cfg.RemoteDriver)
	log.Debug("cache_ttl=%s", cfg.CacheTTL)
	log.Debug("probe_interval=%s", cfg.ProbeInterval)
	log.Debug("sync_worker_count=%d", cfg.SyncWorkerCount)
	log.Debug("sync_queue_size=%d", cfg.SyncQueueSize)
	log.Debug("log_level=%s", cfg.LogLevel)

	ctx, cancel := context.WithCancel(logger.NewContext(context.Background(), log))

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialise: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing databases")
		if err := a.Close(); err != nil {
			log.Warn("close error: %v", err)
		}
	}()

	syncPool := worker.NewPool(cfg.SyncWorkerCount, cfg.SyncQueueSize)
	queue := jobs.NewWorkerQueue(syncPool, a.Coordinator)
	syncPool.Start(ctx)

	// Each reconnect drains what was queued while offline, including
	// leftovers from a previous run.
	a.Monitor.OnReconnect(func() {
		if err := queue.EnqueueSync(); err != nil {
			log.Warn("failed to schedule sync: %v", err)
		}
	})
	if err := a.Monitor.Start(); err != nil {
		log.Error("failed to start reachability monitor: %v", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, trusting X-User-ID headers (development mode)")
	}
	srv := &api.Server{
		Coordinator: a.Coordinator,
		Content:     a.Content,
		Jobs:        queue,
		CacheDB:     a.DB,
		JWTSecret:   []byte(cfg.JWTSecret),
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping reachability monitor")
	a.Monitor.Stop()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Pending mutations stay in the cache database for the next run.
	log.Debug("stopping sync pool")
	cancel()
	syncPool.Stop()

	log.Info("===========================================")
	log.Info("LingoFlash Server Stopped")
	log.Info("===========================================")
}
