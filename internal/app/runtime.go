package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/celltrans/internal/cli"
	"horse.fit/celltrans/internal/config"
	"horse.fit/celltrans/internal/db"
	"horse.fit/celltrans/internal/langdetect"
	"horse.fit/celltrans/internal/logging"
	"horse.fit/celltrans/internal/translation"
)

type storeMode int

const (
	storeOff storeMode = iota
	// storeOptional keeps going without the cache when the database is down.
	storeOptional
	storeRequired
)

// runtime is the wiring shared by every command.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *translation.Registry
	manager  *translation.Manager
	pool     *db.Pool
}

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newRuntime(envLoader *cli.EnvLoader, mode storeMode) (*runtime, error) {
	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		return nil, err
	}

	backendsFile, err := config.LoadBackendsFile(cfg.BackendsFile)
	if err != nil {
		return nil, err
	}

	registry, skipped, err := translation.NewRegistryFromConfig(cfg, backendsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend registry: %w", err)
	}
	if len(skipped) > 0 {
		logger.Warn().
			Strs("backends", skipped).
			Str("file", cfg.BackendsFile).
			Msg("backends file names backends that are not available")
	}

	dispatcher := translation.NewDispatcher(translation.NewRetryPolicy(), logging.Component(logger, "dispatcher"))
	manager := translation.NewManager(registry, dispatcher, logging.Component(logger, "manager")).
		WithWorkers(cfg.Workers).
		WithDetector(langdetect.DetectISO6391)

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		manager:  manager,
	}

	if mode == storeOff || !cfg.HasDatabase() {
		if mode == storeRequired {
			return nil, fmt.Errorf("DATABASE_URL is required for this command")
		}
		return rt, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg, logger)
	if err != nil {
		if mode == storeRequired {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Warn().Err(err).Msg("database unavailable, continuing without translation cache")
		return rt, nil
	}

	rt.pool = pool
	rt.manager.WithStore(pool)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt == nil || rt.pool == nil {
		return
	}
	if err := rt.pool.Close(); err != nil {
		rt.logger.Warn().Err(err).Msg("close database failed")
	}
}
