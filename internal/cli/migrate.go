package cli

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/config"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/mongodb"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quizform-service/internal/utils"
	"github.com/SAP-F-2025/quizform-service/pkg"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or collections and the submission indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, utils.NewLogger(cfg.Environment))
		},
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, logger utils.Logger) error {
	switch cfg.StoreDriver {
	case storePostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		defer pkg.CloseDatabase(db)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	case storeMongo:
		database, err := pkg.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Client().Disconnect(context.Background())
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			return err
		}
	case storeMemory:
		logger.Info("Memory store needs no migrations")
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	logger.Info("Migrations applied", "store", cfg.StoreDriver)
	return nil
}
