package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/model"
)

var (
	seedID      int64
	seedName    string
	seedSchema  string
	seedMetrics []int64
	seedPeriod  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register a demo firm and its analytic metrics (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := strings.ToUpper(strings.TrimSpace(seedSchema))
		if seedID <= 0 || schema == "" {
			return errors.New("--id and --schema are required")
		}
		metrics, err := seedSubscriptions(seedMetrics, seedPeriod)
		if err != nil {
			return err
		}

		cfg, err := bootstrap.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		app, err := bootstrap.Open(cfg, bootstrap.Needs{Warehouse: true})
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signalContext()
		defer stop()

		firm := model.Firm{ID: seedID, Name: seedName, CDPSchema: schema}
		if err := app.Firms().Register(ctx, firm, metrics); err != nil {
			return err
		}
		logger.Log.Info("firm registered",
			zap.Int64("firm_id", firm.ID),
			zap.String("output_schema", firm.OutputSchema()),
			zap.Int64s("metrics", seedMetrics))
		return nil
	},
}

func init() {
	seedCmd.Flags().Int64Var(&seedID, "id", 1, "firm ID")
	seedCmd.Flags().StringVar(&seedName, "name", "Demo Retail", "firm name")
	seedCmd.Flags().StringVar(&seedSchema, "schema", "DEMO", "CDP schema; results go to {schema}_ELT")
	seedCmd.Flags().Int64SliceVar(&seedMetrics, "metrics", []int64{model.MetricSegmentation, model.MetricChurn}, "ANALYTIC_METRICS ids to subscribe")
	seedCmd.Flags().Int64Var(&seedPeriod, "period", 90, "churn inactivity days")
}

var metricNames = map[int64]string{
	model.MetricSegmentation: "RFM & CLV",
	model.MetricSmartInsight: "Smart Insight",
	model.MetricChurn:        "Churn",
}

func seedSubscriptions(ids []int64, period int64) ([]model.AnalyticMetric, error) {
	out := make([]model.AnalyticMetric, 0, len(ids))
	for _, id := range ids {
		name, ok := metricNames[id]
		if !ok {
			return nil, fmt.Errorf("unknown metric id %d", id)
		}
		m := model.AnalyticMetric{MetricID: id, DisplayName: name}
		if id == model.MetricChurn {
			m.PeriodDays = sql.NullInt64{Int64: period, Valid: period > 0}
		}
		out = append(out, m)
	}
	return out, nil
}
