package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/pkg/config"
	"github.com/noah-isme/studybase-api/pkg/database"
	"github.com/noah-isme/studybase-api/pkg/logger"
)

// env carries what every subcommand needs. It is filled by the root command's PersistentPreRunE.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func main() {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "studybase-admin",
		Short:         "Maintenance tasks for the StudyBase API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			e.cfg, e.logger, e.db = cfg, logr, db
			return nil
		},
	}

	rootCmd.AddCommand(newMigrateCmd(e), newSeedCmd(e), newResourcesCmd(e))

	err := rootCmd.ExecuteContext(context.Background())
	e.close()
	if err != nil {
		log.Printf("studybase-admin: %v", err)
		os.Exit(1)
	}
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := database.Migrate(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				e.logger.Info("schema up to date")
				return nil
			}
			e.logger.Info("migrations applied", zap.Strings("versions", applied))
			return nil
		},
	}
}
