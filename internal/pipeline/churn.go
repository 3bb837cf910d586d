package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/churn"
	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/repository"
	"github.com/jmehdipour/crm-analytics/internal/shaper"
	"github.com/jmehdipour/crm-analytics/internal/snapshot"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

const (
	TableCustomerBase = "ANALYTIC_CUSTOMER_BASE"
	TablePerformance  = "CHURN_PERFORMANCE_METRICS"
	TableImportance   = "CHURN_FEATURE_IMPORTANCES"
	TableFirmSummary  = "CHURN_FIRM_BASED"
)

// Churn is the churn job of one firm: prep, train, score.
type Churn struct {
	env     *Env
	trainer *churn.Trainer
}

func NewChurn(env *Env) *Churn {
	return &Churn{env: env, trainer: churn.NewTrainer(env.Opts.Params)}
}

// queryRole tells a churn prep query apart by its file name: *v0.sql builds
// the customer base, *v1.sql selects the training set, anything else the
// scoring set.
func queryRole(name string) snapshot.Kind {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, "v0.sql"):
		return ""
	case strings.HasSuffix(n, "v1.sql"):
		return snapshot.ChurnTrain
	default:
		return snapshot.ChurnPredict
	}
}

// Prep rebuilds the customer base and snapshots the training and scoring
// sets. periodDays is the inactivity window that defines churn.
func (c *Churn) Prep(ctx context.Context, firm model.Firm, periodDays int) error {
	if periodDays <= 0 {
		periodDays = c.env.Opts.PeriodDays
	}
	if err := c.env.Warehouse.DeleteAll(ctx, firm.OutputSchema(), TableCustomerBase); err != nil {
		return err
	}
	queries, err := LoadQueries(c.env.Opts.QueriesDir, "churn")
	if err != nil {
		return err
	}
	v := Vars{Schema: firm.Key(), ChurnThreshold: periodDays}
	seen := map[snapshot.Kind]bool{}
	for _, q := range queries {
		sql := Render(q.SQL, v)
		kind := queryRole(q.Name)
		if kind == "" {
			if err := c.env.Warehouse.Exec(ctx, sql); err != nil {
				return apperrors.Wrapf(err, "churn query %s", q.Name)
			}
			continue
		}
		f, err := c.env.Warehouse.Fetch(ctx, sql)
		if err != nil {
			return apperrors.Wrapf(err, "churn query %s", q.Name)
		}
		if err := snapshot.Write(snapshot.Path(c.env.Opts.DataDir, firm.Key(), kind), f); err != nil {
			return err
		}
		seen[kind] = true
	}
	for _, k := range []snapshot.Kind{snapshot.ChurnTrain, snapshot.ChurnPredict} {
		if !seen[k] {
			return apperrors.DataUnavailable("no churn query produced the %s set for %s", k, firm.Key())
		}
	}
	return nil
}

// Train fits a model on the training snapshot, stores it under the firm key
// and writes the validation report and feature importances.
func (c *Churn) Train(ctx context.Context, firm model.Firm) (*churn.TrainResult, error) {
	log := c.env.logger().With(logger.Firm(firm.ID, firm.Key())...)
	now := c.env.now()

	f, err := snapshot.Read(snapshot.Path(c.env.Opts.DataDir, firm.Key(), snapshot.ChurnTrain))
	if err != nil {
		return nil, err
	}
	set, err := churn.PrepareTraining(f, c.env.Opts.OutlierThreshold)
	if err != nil {
		return nil, err
	}
	log.Info("churn training set",
		zap.Int("rows", len(set.Target)),
		zap.Int("churned", set.Positives()),
		zap.Int("strata", len(set.Strata)))
	for _, st := range set.Strata {
		if len(st.Flagged) > 0 {
			log.Debug("suppressed outliers", zap.String("program", st.Program), zap.Int("target", st.Target), zap.Strings("columns", st.Flagged))
		}
	}

	runID := c.env.runID()
	res, err := c.trainer.Train(set, firm.Key(), runID, util.NewVersion(), now)
	if err != nil {
		return nil, err
	}
	if err := churn.Save(ctx, c.env.Store, res.Artifact); err != nil {
		return nil, err
	}
	metrics.ModelAUC.WithLabelValues(firm.Key()).Set(res.Evaluation.AUC)
	log.Info("churn model stored",
		zap.Int64("run_id", runID),
		zap.String("version", res.Artifact.Version),
		zap.Int("rounds", res.Rounds),
		zap.Int("best_iteration", res.Artifact.Model.BestIteration),
		zap.Float64("auc", res.Evaluation.AUC),
		zap.Float64("f1", res.Evaluation.F1))

	audit := churn.Audit{FirmID: firm.ID, User: c.env.Opts.User, RunID: runID, Now: now}
	perf, err := churn.PerformanceFrame(res.Evaluation, audit)
	if err != nil {
		return nil, err
	}
	if err := c.insert(ctx, firm, TablePerformance, perf); err != nil {
		return nil, err
	}
	imp, err := churn.ImportanceFrame(res.Importance, audit)
	if err != nil {
		return nil, err
	}
	if err := c.insert(ctx, firm, TableImportance, imp); err != nil {
		return nil, err
	}
	c.recordTraining(ctx, firm, res, audit, log)
	return res, nil
}

// ScoreResult summarizes one scored batch.
type ScoreResult struct {
	RunID     int64
	Version   string
	Customers int
	Churned   int
	Risk      map[string]int
	Written   int
	Repeats   int // extra program rows folded into their customer
}

// Score applies the stored model to the scoring snapshot and writes the
// predictions and the per-program summary.
func (c *Churn) Score(ctx context.Context, firm model.Firm) (*ScoreResult, error) {
	log := c.env.logger().With(logger.Firm(firm.ID, firm.Key())...)
	now := c.env.now()

	a, err := churn.Load(ctx, c.env.Store, firm.Key())
	if err != nil {
		return nil, err
	}
	f, err := snapshot.Read(snapshot.Path(c.env.Opts.DataDir, firm.Key(), snapshot.ChurnPredict))
	if err != nil {
		return nil, err
	}
	set, err := churn.PrepareScoring(f)
	if err != nil {
		return nil, err
	}
	scored, err := a.Score(set)
	if err != nil {
		return nil, err
	}

	res := &ScoreResult{RunID: a.RunID, Version: a.Version, Customers: scored.Len(), Risk: countLabels(scored, []string{churn.ColClass})[churn.ColClass]}
	res.Churned = countLabels(scored, []string{churn.ColTarget})[churn.ColTarget][churn.LabelChurn]
	for risk, n := range res.Risk {
		metrics.CustomersScored.WithLabelValues(risk).Add(float64(n))
	}

	// one scored row per (customer, program); the wide table keeps the first
	wide, repeats, err := shaper.Shape(scored, shaper.ChurnSchema, shaper.Audit{FirmID: firm.ID, User: c.env.Opts.User, Now: now})
	if err != nil {
		return nil, err
	}
	res.Repeats = repeats
	if repeats > 0 {
		log.Info("customers in several programs kept first program row", zap.Int("repeats", repeats))
	}
	written, err := c.env.Warehouse.Insert(ctx, firm.OutputSchema(), TableCustomer, wide)
	metrics.RowsWritten.WithLabelValues(TableCustomer).Add(float64(written))
	if err != nil {
		return nil, err
	}
	res.Written = written

	summary, err := churn.Summarize(scored, churn.Audit{FirmID: firm.ID, User: c.env.Opts.User, RunID: a.RunID, Now: now})
	if err != nil {
		return nil, err
	}
	if err := c.insert(ctx, firm, TableFirmSummary, summary); err != nil {
		return nil, err
	}
	log.Info("churn scores written",
		zap.Int64("model_run_id", a.RunID),
		zap.Int("customers", res.Customers),
		zap.Int("churned", res.Churned))
	return res, nil
}

func (c *Churn) insert(ctx context.Context, firm model.Firm, table string, f *frame.Frame) error {
	n, err := c.env.Warehouse.Insert(ctx, firm.OutputSchema(), table, f)
	metrics.RowsWritten.WithLabelValues(table).Add(float64(n))
	if err != nil {
		return fmt.Errorf("write %s: %w", table, err)
	}
	return nil
}

func (c *Churn) recordTraining(ctx context.Context, firm model.Firm, res *churn.TrainResult, a churn.Audit, log *zap.Logger) {
	if c.env.Facts == nil {
		return
	}
	e := res.Evaluation
	err := c.env.Facts.InsertPerformance(ctx, repository.PerformanceFact{
		RunID: a.RunID, FirmID: firm.ID, Schema: firm.Key(),
		AUC: e.AUC, Accuracy: e.Accuracy, Precision: e.Precision, Recall: e.Recall, F1: e.F1,
		TN: int64(e.Confusion.TN), FP: int64(e.Confusion.FP), FN: int64(e.Confusion.FN), TP: int64(e.Confusion.TP),
		CreatedAt: a.Now,
	})
	if err != nil {
		log.Warn("churn performance fact not recorded", zap.Error(err))
	}
	imp := make([]repository.ImportanceFact, len(res.Importance))
	for i, x := range res.Importance {
		imp[i] = repository.ImportanceFact{
			RunID: a.RunID, FirmID: firm.ID, Schema: firm.Key(),
			Feature: x.Feature, Splits: int64(x.Splits), Gain: x.Gain, CreatedAt: a.Now,
		}
	}
	if err := c.env.Facts.InsertImportances(ctx, imp); err != nil {
		log.Warn("feature importance facts not recorded", zap.Error(err))
	}
}
