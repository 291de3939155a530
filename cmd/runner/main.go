package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genomeai/platform/cmd/runner/engine"
	"github.com/genomeai/platform/cmd/runner/handlers"
	"github.com/genomeai/platform/cmd/runner/process"
	"github.com/genomeai/platform/cmd/runner/sourcecache"
	"github.com/genomeai/platform/common/bootstrap"
	"github.com/genomeai/platform/common/server"
	"github.com/genomeai/platform/common/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Setup(ctx, "runner", bootstrap.RunnerProfile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize runner: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, components)

	stop()
	components.Shutdown(context.Background())

	if err != nil {
		fmt.Fprintf(os.Stderr, "runner exited: %v\n", err)
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

	if err := store.EnsureBucket(ctx, cfg.Storage.BucketRuns); err != nil {
		return fmt.Errorf("failed to ensure bucket %s: %w", cfg.Storage.BucketRuns, err)
	}

	exec := process.NewOSExecutor()

	sources, err := sourcecache.New(cfg.Runner.CacheRoot, cfg.Runner.GitBin, exec, log)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		WorkDir:      cfg.Runner.WorkDir,
		PipelinesDir: cfg.Runner.PipelinesDir,
		NextflowBin:  cfg.Runner.NextflowBin,
	}, exec, sources, engine.NewCollector(store, cfg.Storage.BucketRuns, log), log)
	if err != nil {
		return err
	}

	e := server.NewEcho(log)
	handlers.Register(e, handlers.NewRunHandler(eng, log))
	if components.Telemetry != nil {
		components.Telemetry.Register(e)
	}

	srv := server.New(cfg.Service.Name, cfg.Service.Port, e, cfg.Service.HTTPWriteTimeout, log)

	log.Info("runner service ready",
		"port", cfg.Service.Port,
		"work_dir", cfg.Runner.WorkDir,
		"cache_root", cfg.Runner.CacheRoot,
		"cache_max_age", cfg.Runner.CacheMaxAge,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return sources.RunJanitor(gctx, cfg.Runner.CacheSweep, cfg.Runner.CacheMaxAge)
	})

	return g.Wait()
}
