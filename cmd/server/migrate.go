package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"podpal/internal/platform/config"
	"podpal/internal/platform/database"
)

var errStatusPostgresOnly = errors.New("migration status is only available for STORE_DRIVER=postgres")

// NewMigrateCmd applies schema migrations (Postgres) or ensures indexes (Mongo).
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply all pending migrations for the configured store. For Postgres this
runs the embedded goose migrations; for MongoDB it creates the unique indexes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), cmd)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd.Context())
		},
	})
	return cmd
}

func runMigrate(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd.Println("Connecting to database...")
	st, err := openStores(ctx, cfg, nil, true)
	if err != nil {
		return err
	}
	defer st.close()

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return errStatusPostgresOnly
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return database.MigrationStatus(ctx, pool)
}
