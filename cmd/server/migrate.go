package main

import (
	"errors"

	"GreenCampusServer/internal/config"
	"GreenCampusServer/internal/logging"
	"GreenCampusServer/internal/store/postgres"

	"github.com/spf13/cobra"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DBDSN == "" {
		return errors.New("migrate: APP_DB_DSN is required")
	}

	logger, flush := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.IsProd()})
	defer func() { _ = flush() }()

	pool, err := postgres.Open(cmd.Context(), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(cmd.Context(), pool); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}
