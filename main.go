package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/allergycheck-api/cache"
	"github.com/giygas/allergycheck-api/clinicalsync"
	"github.com/giygas/allergycheck-api/config"
	"github.com/giygas/allergycheck-api/data"
	"github.com/giygas/allergycheck-api/handlers"
	"github.com/giygas/allergycheck-api/health"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/giygas/allergycheck-api/scheduler"
	"github.com/giygas/allergycheck-api/server"
	"github.com/giygas/allergycheck-api/validation"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	logging.InitLoggerWithOptions(cfg.LogDir, logging.Options{
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to close log file:", err)
		}
	}()

	logging.Info("Configuration loaded",
		"env", cfg.Env,
		"backend_url", cfg.BackendURL,
		"sync_interval", cfg.SyncInterval.String(),
		"patient_cache_ttl", cfg.PatientCacheTTL.String(),
		"redis", cfg.RedisURL != "",
	)

	if err := run(cfg); err != nil {
		logging.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	backend, err := clinicalsync.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	patientCache, closeCache := newPatientCache(cfg)
	defer closeCache()

	sched := scheduler.NewScheduler(dataContainer, backend, cfg.SyncInterval)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(dataContainer, cfg.SyncInterval, patientCache)
	handler := handlers.NewHTTPHandler(
		dataContainer,
		validation.NewDataValidator(),
		cache.NewCachedSource(backend, patientCache),
		healthChecker,
	)

	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// newPatientCache picks redis when REDIS_URL is set and falls back to memory.
// A zero TTL disables caching entirely.
func newPatientCache(cfg *config.Config) (interfaces.PatientCache, func()) {
	if cfg.PatientCacheTTL <= 0 {
		logging.Info("Patient cache disabled")
		return nil, func() {}
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.PatientCacheTTL)
		if err == nil {
			logging.Info("Patient cache backed by redis")
			return redisCache, func() {
				if err := redisCache.Close(); err != nil {
					logging.Warn("Failed to close redis client", "error", err)
				}
			}
		}
		logging.Warn("Redis unavailable, using in-memory patient cache", "error", err)
	}

	memoryCache := cache.NewMemoryCache(cfg.PatientCacheTTL)
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if removed := memoryCache.Purge(); removed > 0 {
					logging.Debug("Purged expired patient snapshots", "count", removed)
				}
			}
		}
	}()

	return memoryCache, func() { close(stop) }
}
