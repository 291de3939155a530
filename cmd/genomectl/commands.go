package main

import (
	"fmt"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/cmd/api/repository"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/genomeai/platform/cmd/api/supervisor"
	"github.com/genomeai/platform/common/bootstrap"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(c *bootstrap.Components) error {
				if err := c.DB.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user, or reset an existing user's password and role",
		Long: `Create a user, or reset an existing user's password and role.

Examples:
  # Add an editor
  genomectl create-user --username alice --password s3cret --role Editor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(c *bootstrap.Components) error {
				users := repository.NewUserRepository(c.DB)
				auth := service.NewAuthService(users, c.Config.Auth.JWTSecret, c.Config.Auth.TokenTTL, c.Logger)

				user, err := auth.SetUser(cmd.Context(), username, password, models.Role(role))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) id=%s\n", user.Username, user.Role, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleViewer), "Role: Admin, Editor or Viewer")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSweepCmd() *cobra.Command {
	var horizon time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail runs left Queued or Running past the recovery horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(c *bootstrap.Components) error {
				if horizon <= 0 {
					horizon = c.Config.Dispatch.RecoveryHorizon
				}

				runs := commonrepo.NewRunRepository(c.DB)
				reconciler := service.NewReconciler(runs, nil, c.Logger)
				sweeper := supervisor.NewRecoverySweeper(runs, reconciler, c.Logger).WithHorizon(horizon)

				n, err := sweeper.SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recovered %d run(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&horizon, "horizon", 0, "Fail open runs older than this (default RECOVERY_HORIZON)")
	return cmd
}
