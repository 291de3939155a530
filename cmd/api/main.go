package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/routes"
	"github.com/genomeai/platform/common/bootstrap"
	"github.com/genomeai/platform/common/db"
	"github.com/genomeai/platform/common/queue"
	"github.com/genomeai/platform/common/server"
	"github.com/genomeai/platform/common/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "api",
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.Migrate(ctx)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap api: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, components)

	// Consumers drain on Shutdown, so cancel first
	stop()
	components.Shutdown(context.Background())

	if err != nil {
		fmt.Fprintf(os.Stderr, "api exited: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, components *bootstrap.Components) error {
	cfg := components.Config
	log := components.Logger

	store, err := storage.NewMinioStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureBucket(ctx, cfg.Storage.BucketDatasets); err != nil {
		return fmt.Errorf("failed to ensure bucket %s: %w", cfg.Storage.BucketDatasets, err)
	}

	// Initialize service container (singleton pattern - all services created once)
	c, err := container.NewContainer(components, store)
	if err != nil {
		return fmt.Errorf("failed to initialize service container: %w", err)
	}

	seeded, err := c.AuthService.EnsureAdmin(ctx, cfg.Auth.AdminUser, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if seeded {
		log.Warn("seeded initial admin from ADMIN_USER/ADMIN_PASS; rotate the password")
	}

	if components.Queue != nil {
		if err := components.Queue.Subscribe(ctx, queue.TopicRunEvents, c.AuditService.HandleRunEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", queue.TopicRunEvents, err)
		}
	}

	e := server.NewEcho(log)
	routes.Register(e, c)
	if components.Telemetry != nil {
		components.Telemetry.Register(e)
	}

	srv := server.New(cfg.Service.Name, cfg.Service.Port, e, cfg.Service.HTTPWriteTimeout, log)

	log.Info("api service ready",
		"port", cfg.Service.Port,
		"runner_base", cfg.Dispatch.RunnerBase,
		"runner_timeout", cfg.Dispatch.RunnerTimeout,
		"recovery_horizon", cfg.Dispatch.RecoveryHorizon,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return c.Sweeper.Start(gctx)
	})

	return g.Wait()
}
