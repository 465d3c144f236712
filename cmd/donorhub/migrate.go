package main

import (
	"errors"

	"github.com/spf13/cobra"

	"donorhub/internal/platform/logger"
	"donorhub/internal/platform/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Postgres.DSN == "" {
				return errors.New("postgres.dsn is required to migrate")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)
			db, err := postgres.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(cmd.Context(), db, log)
		},
	}
}
