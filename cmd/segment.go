package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

var (
	segFirm     int64
	segSkipPrep bool
	segStart    string
	segEnd      string

	segmentCmd = &cobra.Command{
		Use:   "segment",
		Short: "Prepare and run the RFM/CLV segmentation of one firm",
		RunE:  runSegment,
	}
)

func init() {
	firmFlag(segmentCmd, &segFirm, true)
	segmentCmd.Flags().BoolVar(&segSkipPrep, "skip-prep", false, "classify the existing snapshot without re-running the prep queries")
	segmentCmd.Flags().StringVar(&segStart, "start", "", "YYYYMMDD for the {dt_start} placeholder")
	segmentCmd.Flags().StringVar(&segEnd, "end", "", "YYYYMMDD for the {dt_end} placeholder")
}

func runSegment(cmd *cobra.Command, _ []string) error {
	for _, d := range []string{segStart, segEnd} {
		if d == "" {
			continue
		}
		if _, ok := util.ParseYYYYMMDDString(d); !ok {
			return fmt.Errorf("invalid date %q, want YYYYMMDD", d)
		}
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

	firm, err := app.Firms().Get(ctx, segFirm)
	if err != nil {
		return err
	}
	env, err := app.Env()
	if err != nil {
		return err
	}
	seg := pipeline.NewSegmentation(env)
	log := logger.Log.With(logger.Firm(firm.ID, firm.Key())...)

	if !segSkipPrep {
		n, err := seg.Prep(ctx, *firm, pipeline.Vars{Start: segStart, End: segEnd})
		if err != nil {
			return err
		}
		log.Info("segmentation snapshot ready", zap.Int("customers", n))
	}
	res, err := seg.Run(ctx, *firm)
	if err != nil {
		return err
	}
	log.Info("segmentation done",
		zap.Int64("run_id", res.RunID),
		zap.Int("customers", res.Customers),
		zap.Int("dropped", res.Dropped),
		zap.Int("rows", res.Written))
	return nil
}
