package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

var (
	runFirm     int64
	runAnalysis string
	runProgress bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the subscribed analyses of one or every firm",
		RunE:  runAnalyses,
	}
)

func init() {
	firmFlag(runCmd, &runFirm, false)
	runCmd.Flags().StringVar(&runAnalysis, "analysis", "all", "all | segmentation | churn")
	runCmd.Flags().BoolVar(&runProgress, "progress", true, "draw a progress bar on stderr")
}

func runAnalyses(cmd *cobra.Command, _ []string) error {
	analysis, err := parseAnalysis(runAnalysis)
	if err != nil {
		return err
	}
	cfg, err := bootstrap.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	app, err := bootstrap.Open(cfg, bootstrap.Needs{Warehouse: true, Events: true})
	if err != nil {
		return err
	}
	defer app.Close()

	runner, err := app.Runner()
	if err != nil {
		return err
	}
	if runProgress {
		runner.Progress = os.Stderr
	}

	ctx, stop := signalContext()
	defer stop()

	req := model.RunRequest{ID: util.NewVersion(), FirmID: runFirm, Analysis: analysis}
	logger.Log.Info("run started", zap.String("request_id", req.ID), zap.Int64("firm_id", req.FirmID), zap.String("analysis", analysis.String()))
	rep, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}
	for _, f := range rep.Firms {
		for _, j := range f.Jobs {
			logger.Log.Info("job",
				zap.Int64("firm_id", f.Firm.ID),
				zap.String("schema", f.Firm.Key()),
				zap.String("job", j.Job),
				zap.String("status", j.Status.String()),
				zap.Int("rows", j.Rows),
				zap.Duration("took", j.Duration))
		}
	}
	if n := rep.Failed(); n > 0 {
		return fmt.Errorf("%d job(s) failed", n)
	}
	return nil
}
