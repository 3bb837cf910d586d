package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ClickHouse run facts tables (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		if !cfg.ClickHouse.Enabled() {
			return errors.New("clickhouse.dsn is not configured")
		}
		app, err := bootstrap.Open(cfg, bootstrap.Needs{})
		if err != nil {
			return err
		}
		defer app.Close()

		stmts, err := pipeline.LoadQueries(filepath.Dir(migrationsDir), filepath.Base(migrationsDir))
		if err != nil {
			return err
		}
		if len(stmts) == 0 {
			return fmt.Errorf("no migrations in %s", migrationsDir)
		}

		ctx, stop := signalContext()
		defer stop()

		vars := pipeline.Vars{Schema: cfg.Warehouse.FactsDatabase}
		for _, s := range stmts {
			if _, err := app.ClickHouse.ExecContext(ctx, pipeline.Render(s.SQL, vars)); err != nil {
				return fmt.Errorf("exec migration %s: %w", s.Name, err)
			}
			logger.Log.Info("migration applied", zap.String("file", s.Name))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", filepath.Join("migrations", "clickhouse"), "directory of *.sql files, one statement each")
}
