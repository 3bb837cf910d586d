package pipeline

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
	"github.com/jmehdipour/crm-analytics/internal/model"
)

// Firms lists tenants and their subscribed analyses.
type Firms interface {
	List(ctx context.Context) ([]model.Firm, error)
	Get(ctx context.Context, id int64) (*model.Firm, error)
	Metrics(ctx context.Context, firm model.Firm) ([]model.AnalyticMetric, error)
}

// Runner walks the firms one after the other and runs the analyses each
// subscribed to. A failing job is logged as FAIL and the run moves on.
type Runner struct {
	Firms        Firms
	Segmentation *Segmentation
	Churn        *Churn
	JobLog       JobLog
	Events       Events // optional
	Log          *zap.Logger
	Progress     io.Writer // nil disables the progress bar
}

func NewRunner(env *Env, firms Firms, jobLog JobLog) *Runner {
	return &Runner{
		Firms:        firms,
		Segmentation: NewSegmentation(env),
		Churn:        NewChurn(env),
		JobLog:       jobLog,
		Log:          env.logger(),
	}
}

// JobOutcome is the final state of one job.
type JobOutcome struct {
	Job      string
	MetricID int64
	Status   model.JobStatus
	Rows     int
	Err      error
	Duration time.Duration
}

type FirmReport struct {
	Firm model.Firm
	Jobs []JobOutcome
}

type Report struct {
	Firms []FirmReport
}

// Failed counts failed jobs across firms.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Firms {
		for _, j := range f.Jobs {
			if j.Status == model.StatusFail {
				n++
			}
		}
	}
	return n
}

// Run executes req. Only listing the firms can fail the whole run.
func (r *Runner) Run(ctx context.Context, req model.RunRequest) (*Report, error) {
	firms, err := r.firms(ctx, req.FirmID)
	if err != nil {
		return nil, err
	}
	analysis := req.Analysis
	if analysis == "" {
		analysis = model.AnalysisAll
	}

	var bar *progressbar.ProgressBar
	if r.Progress != nil {
		bar = progressbar.NewOptions(len(firms),
			progressbar.OptionSetWriter(r.Progress),
			progressbar.OptionSetDescription("firms"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	rep := &Report{}
	for _, f := range firms {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Firms = append(rep.Firms, r.runFirm(ctx, req.ID, f, analysis))
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return rep, nil
}

func (r *Runner) firms(ctx context.Context, id int64) ([]model.Firm, error) {
	if id == 0 {
		return r.Firms.List(ctx)
	}
	f, err := r.Firms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return []model.Firm{*f}, nil
}

func (r *Runner) runFirm(ctx context.Context, requestID string, firm model.Firm, analysis model.Analysis) FirmReport {
	log := r.log().With(logger.Firm(firm.ID, firm.Key())...)
	rep := FirmReport{Firm: firm}
	job := func(metricID int64, name string, fn func(context.Context) (int, error)) bool {
		o := r.job(ctx, requestID, firm, metricID, name, fn)
		rep.Jobs = append(rep.Jobs, o)
		return o.Status == model.StatusSuccess
	}

	var prepErr error
	if analysis.Includes(model.MetricSegmentation) {
		prepOK := job(0, model.JobSegmentationPrep, func(ctx context.Context) (int, error) {
			return r.Segmentation.Prep(ctx, firm, Vars{})
		})
		if !prepOK {
			prepErr = apperrors.DataUnavailable("segmentation data prep failed for %s", firm.Key())
		}
	}

	subscribed, err := r.Firms.Metrics(ctx, firm)
	if err != nil {
		log.Error("cannot read analytic metrics", zap.Error(err))
		return rep
	}
	if len(subscribed) == 0 {
		log.Warn("firm has no analytic metrics")
		return rep
	}

	for _, m := range subscribed {
		if !analysis.Includes(m.MetricID) {
			continue
		}
		switch m.MetricID {
		case model.MetricSegmentation:
			job(m.MetricID, model.JobSegmentation, func(ctx context.Context) (int, error) {
				if prepErr != nil {
					return 0, prepErr
				}
				res, err := r.Segmentation.Run(ctx, firm)
				if err != nil {
					return 0, err
				}
				return res.Written, nil
			})
		case model.MetricChurn:
			period := 0
			if m.PeriodDays.Valid {
				period = int(m.PeriodDays.Int64)
			}
			ok := job(m.MetricID, model.JobChurnPrep, func(ctx context.Context) (int, error) {
				return 0, r.Churn.Prep(ctx, firm, period)
			})
			ok = ok && job(m.MetricID, model.JobChurnTrain, func(ctx context.Context) (int, error) {
				res, err := r.Churn.Train(ctx, firm)
				if err != nil {
					return 0, err
				}
				return res.TrainRows + res.ValidRows, nil
			})
			if ok {
				job(m.MetricID, model.JobChurnScore, func(ctx context.Context) (int, error) {
					res, err := r.Churn.Score(ctx, firm)
					if err != nil {
						return 0, err
					}
					return res.Written, nil
				})
			}
		default:
			log.Info("metric not handled here", zap.Int64("metric_id", m.MetricID), zap.String("display_name", m.DisplayName))
		}
	}
	return rep
}

// job runs fn between a PENDING and a SUCCESS/FAIL STG_LOGS entry.
func (r *Runner) job(ctx context.Context, requestID string, firm model.Firm, metricID int64, name string, fn func(context.Context) (int, error)) JobOutcome {
	log := r.log().With(append(logger.Firm(firm.ID, firm.Key()), zap.String("job", name))...)
	start := time.Now()
	r.logJob(ctx, model.JobEntry{FirmID: firm.ID, MetricID: metricID, JobType: name, Status: model.StatusPending, Start: start}, log)

	rows, err := fn(ctx)
	end := time.Now()
	o := JobOutcome{Job: name, MetricID: metricID, Status: model.StatusSuccess, Rows: rows, Duration: end.Sub(start)}
	if err != nil {
		o.Status, o.Err = model.StatusFail, err
		log.Error("job failed", zap.String("code", apperrors.GetCode(err)), zap.Error(err))
	} else {
		log.Info("job finished", zap.Int("rows", rows), zap.Duration("took", o.Duration))
	}
	r.logJob(ctx, model.JobEntry{FirmID: firm.ID, MetricID: metricID, JobType: name, Status: o.Status, Start: start, End: end}, log)
	metrics.JobsTotal.WithLabelValues(name, o.Status.String()).Inc()
	metrics.JobDuration.WithLabelValues(name).Observe(o.Duration.Seconds())
	r.publish(ctx, requestID, firm, o, start, end, log)
	return o
}

func (r *Runner) logJob(ctx context.Context, e model.JobEntry, log *zap.Logger) {
	if r.JobLog == nil {
		return
	}
	if err := r.JobLog.Log(ctx, e); err != nil {
		log.Warn("job status not logged", zap.String("status", e.Status.String()), zap.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, requestID string, firm model.Firm, o JobOutcome, start, end time.Time, log *zap.Logger) {
	if r.Events == nil {
		return
	}
	ev := model.JobEvent{
		RequestID: requestID,
		FirmID:    firm.ID,
		Schema:    firm.Key(),
		Job:       o.Job,
		Status:    o.Status,
		Rows:      o.Rows,
		Start:     start,
		End:       end,
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
		ev.Code = apperrors.GetCode(o.Err)
	}
	if err := r.Events.PublishJSON(ctx, strconv.FormatInt(firm.ID, 10), ev); err != nil {
		log.Warn("job event not published", zap.Error(err))
	}
}

func (r *Runner) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}
