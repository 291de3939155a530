package main

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/common/bootstrap"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genomectl",
		Short: "Operator commands for the genomics control plane",
		Long: `genomectl runs one-off maintenance tasks against the api database.

It reads the same environment (and .env file) as the api service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newMigrateCmd(),
		newCreateUserCmd(),
		newSweepCmd(),
	)
	return cmd
}

// withDatabase bootstraps only the database and runs fn against it
func withDatabase(ctx context.Context, fn func(*bootstrap.Components) error) error {
	components, err := bootstrap.Setup(ctx, "genomectl", bootstrap.CLIProfile())
	if err != nil {
		return fmt.Errorf("failed to bootstrap: %w", err)
	}
	defer components.Shutdown(context.Background())

	return fn(components)
}
