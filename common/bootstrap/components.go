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

// Components holds all initialized service dependencies
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Redis     *redis.Client
	Queue     queue.Queue
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// LIFO
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the components a readiness probe depends on.
// The returned name identifies the failing component.
func (c *Components) Health(ctx context.Context) (string, error) {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return "database", fmt.Errorf("database unhealthy: %w", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Health(ctx); err != nil {
			return "redis", fmt.Errorf("redis unhealthy: %w", err)
		}
	}

	return "", nil
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
