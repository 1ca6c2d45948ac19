package admin

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/gistify/internal/cli"
	"github.com/cloo-solutions/gistify/internal/config"
	"github.com/cloo-solutions/gistify/internal/database"
	"github.com/cloo-solutions/gistify/internal/logger"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.PersistentFlags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := migrationContext()
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("migrations")
			return database.MigrateUp(ctx, cfg.DatabaseURL, source)
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := migrationContext()
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("migrations")
			steps, _ := cmd.Flags().GetInt("steps")
			return database.MigrateDown(ctx, cfg.DatabaseURL, source, steps)
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func migrationContext() (context.Context, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasDatabase() {
		return nil, nil, errors.New("GISTIFY_DATABASE_URL is required")
	}
	return logger.WithContext(context.Background(), cli.NewLogger(cfg)), cfg, nil
}
