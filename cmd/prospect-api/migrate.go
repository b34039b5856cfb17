package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/prospectgrid/prospectgrid/internal/api_server"
	"github.com/prospectgrid/prospectgrid/internal/config"
	"github.com/prospectgrid/prospectgrid/internal/store"
	"github.com/prospectgrid/prospectgrid/pkg/log"
	"github.com/prospectgrid/prospectgrid/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Migrating database")
		defer zap.S().Info("Db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalf("running initial migration: %v", err)
		}

		ctx := context.Background()
		pool, err := apiserver.NewPgxPool(ctx, cfg)
		if err != nil {
			zap.S().Fatalf("creating pgx pool: %v", err)
		}
		defer pool.Close()

		if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder, pool); err != nil {
			zap.S().Fatalf("running migrations: %v", err)
		}

		return nil
	},
}
