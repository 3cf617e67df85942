// Package main is the entry point for the Minaret API server.
//
// It loads configuration, selects the key-value backend, wires the
// schedule pipeline (timings client, cache, timezone resolver), starts
// the midnight rollover job, and serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"minaret/internal/api"
	"minaret/internal/cache"
	"minaret/internal/compass"
	"minaret/internal/config"
	"minaret/internal/external"
	"minaret/internal/kv"
	"minaret/internal/notify"
	"minaret/internal/schedule"
	"minaret/internal/scheduler"
	"minaret/internal/state"
	"minaret/internal/timezone"
	"minaret/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("minaret API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"store_backend", cfg.Store.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing %s store: %w", cfg.Store.Backend, err)
	}
	defer closeStore()

	clock := types.RealClock{}
	scheduleCache := cache.NewScheduleCache(store, clock, logger)
	settings := schedule.NewSettingsStore(store, logger)
	resolver := timezone.NewResolver(nil, logger)
	provider := external.NewAladhanClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	schedules := schedule.NewClient(provider, scheduleCache, resolver, clock, logger)
	stateStore := state.NewStore()

	if cfg.Rollover.Enabled {
		job := scheduler.NewJob(schedules, settings, stateStore, clock, logger, warmLocations(cfg, logger)...)
		job.Start(ctx)
		defer job.Stop()
	}

	srv, err := api.NewServer(
		cfg,
		logger,
		schedules,
		scheduleCache,
		settings,
		compass.NewService(),
		stateStore,
		notify.NewPlanner(0),
		clock,
	)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// newStore builds the configured key-value backend. The returned close
// function is a no-op for the in-memory store.
func newStore(ctx context.Context, cfg *config.Config) (types.KVStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		r := kv.NewRedis(cfg.Store.RedisAddr, cfg.Store.RedisUsername, cfg.Store.RedisPassword)
		if err := r.Ping(ctx); err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case config.BackendPostgres:
		pool, err := kv.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewPostgres(pool), pool.Close, nil
	default:
		return kv.NewMemory(), func() {}, nil
	}
}

// warmLocations parses the configured "lat,lon;lat,lon" pairs. Malformed
// entries are logged and skipped rather than failing startup.
func warmLocations(cfg *config.Config, logger *slog.Logger) []types.Coordinate {
	var coords []types.Coordinate
	for _, raw := range strings.Split(cfg.Rollover.WarmLocations, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			logger.Warn("skipping malformed warm location", "value", raw)
			continue
		}
		var coord types.Coordinate
		if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%f %f", &coord.Latitude, &coord.Longitude); err != nil || !coord.Valid() {
			logger.Warn("skipping malformed warm location", "value", raw)
			continue
		}
		coords = append(coords, coord)
	}
	return coords
}

// newLogger builds the process-wide structured logger.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
