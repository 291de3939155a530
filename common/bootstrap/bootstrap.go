package bootstrap

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/common/cache"
	"github.com/genomeai/platform/common/config"
	"github.com/genomeai/platform/common/db"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/queue"
	"github.com/genomeai/platform/common/redis"
	"github.com/genomeai/platform/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.config != nil {
		components.Config = options.config
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.log != nil {
		components.Logger = options.log
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"skipped", options.skipped(),
	)

	// 3. Initialize database (if not skipped)
	if options.enabled(componentDB) {
		components.Logger.Info("connecting to database", "host", cfg.Database.Host, "db", cfg.Database.Database)
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		if options.migrate != nil {
			components.Logger.Info("running database init hook")
			if err := options.migrate(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize Redis (if enabled and not skipped)
	if options.enabled(componentRedis) && cfg.Redis.Enabled {
		components.Redis, err = redis.NewFromConfig(ctx, cfg, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Initialize queue (if not skipped)
	if options.enabled(componentQueue) {
		components.Logger.Info("initializing queue", "type", cfg.Queue.Type)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(components.Logger)
		case "redis":
			if components.Redis == nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("redis queue requested but redis is not initialized")
			}
			components.Queue = queue.NewRedisStreamQueue(components.Redis, cfg.Queue.Stream, serviceName, components.Logger)
		default:
			components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 6. Initialize cache (if not skipped)
	if options.enabled(componentCache) && cfg.Cache.Enabled {
		components.Logger.Info("initializing cache", "size_mb", cfg.Cache.SizeMB)

		components.Cache = cache.NewMemoryCache(cfg.Cache.SizeMB, components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 7. Initialize telemetry (if not skipped)
	if options.enabled(componentTelemetry) {
		components.Telemetry = telemetry.New(
			cfg.Telemetry.EnablePprof,
			cfg.Telemetry.PprofPort,
			cfg.Telemetry.EnableMetrics,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			// Telemetry never blocks startup
			components.Logger.Warn("failed to start telemetry", "error", err)
		}

		components.addCleanup(func() error {
			return components.Telemetry.Stop(context.Background())
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}
