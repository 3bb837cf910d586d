package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/bootstrap"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
)

var churnCmd = &cobra.Command{
	Use:   "churn",
	Short: "Churn data preparation, training and scoring for one firm",
}

var churnPeriod int

func init() {
	churnCmd.PersistentFlags().IntVar(&churnPeriod, "period", 0, "inactivity days that define churn (0 = config churn.period_days)")
	churnCmd.AddCommand(
		churnStep("prep", "Rebuild the customer base and snapshot the training and scoring sets", stepPrep),
		churnStep("train", "Train and store the churn model from the training snapshot", stepTrain),
		churnStep("score", "Score the scoring snapshot with the stored model", stepScore),
		churnStep("all", "prep, train and score", stepPrep, stepTrain, stepScore),
	)
}

type churnStepFunc func(ctx context.Context, job *pipeline.Churn, firm model.Firm, log *zap.Logger) error

func churnStep(use, short string, steps ...churnStepFunc) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}
	firmID := new(int64)
	firmFlag(cmd, firmID, true)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
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

		firm, err := app.Firms().Get(ctx, *firmID)
		if err != nil {
			return err
		}
		env, err := app.Env()
		if err != nil {
			return err
		}
		job := pipeline.NewChurn(env)
		log := logger.Log.With(logger.Firm(firm.ID, firm.Key())...)
		for _, step := range steps {
			if err := step(ctx, job, *firm, log); err != nil {
				return err
			}
		}
		return nil
	}
	return cmd
}

func stepPrep(ctx context.Context, job *pipeline.Churn, firm model.Firm, log *zap.Logger) error {
	if err := job.Prep(ctx, firm, churnPeriod); err != nil {
		return err
	}
	log.Info("churn snapshots ready")
	return nil
}

func stepTrain(ctx context.Context, job *pipeline.Churn, firm model.Firm, log *zap.Logger) error {
	res, err := job.Train(ctx, firm)
	if err != nil {
		return err
	}
	log.Info("churn model trained",
		zap.String("version", res.Artifact.Version),
		zap.Float64("auc", res.Evaluation.AUC),
		zap.Float64("f1", res.Evaluation.F1))
	return nil
}

func stepScore(ctx context.Context, job *pipeline.Churn, firm model.Firm, log *zap.Logger) error {
	res, err := job.Score(ctx, firm)
	if err != nil {
		return err
	}
	log.Info("churn scores written",
		zap.String("version", res.Version),
		zap.Int("customers", res.Customers),
		zap.Int("churned", res.Churned))
	return nil
}
