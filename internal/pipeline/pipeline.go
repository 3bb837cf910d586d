// Package pipeline runs the per-firm analytics jobs: it prepares snapshots
// from the warehouse, feeds them through segmentation and churn scoring and
// writes the shaped results back.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/churn"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/outlier"
	"github.com/jmehdipour/crm-analytics/internal/repository"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

// Warehouse is the slice of repository.Warehouse the jobs use.
type Warehouse interface {
	Fetch(ctx context.Context, query string) (*frame.Frame, error)
	Exec(ctx context.Context, query string) error
	Insert(ctx context.Context, schema, table string, f *frame.Frame) (int, error)
	DeleteAll(ctx context.Context, schema, table string) error
}

// JobLog records job status transitions (STG_LOGS).
type JobLog interface {
	Log(ctx context.Context, e model.JobEntry) error
}

// Events receives one JobEvent per finished job.
type Events interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Options are the tunables shared by all jobs.
type Options struct {
	DataDir          string
	QueriesDir       string
	User             string // CREATED_BY / UPDATED_BY
	OutlierThreshold float64
	PeriodDays       int // churn window when ANALYTIC_METRICS has none
	Params           gbdt.Params
}

func DefaultOptions() Options {
	return Options{
		DataDir:          "data",
		QueriesDir:       "db_queries",
		User:             "crm-analytics",
		OutlierThreshold: outlier.DefaultThreshold,
		PeriodDays:       90,
		Params:           gbdt.DefaultParams(),
	}
}

// Env wires the collaborators of the jobs. Facts and Events are optional.
type Env struct {
	Warehouse Warehouse
	Store     churn.Store
	Facts     repository.RunFactsRepository
	Log       *zap.Logger
	Opts      Options

	Now      func() time.Time
	NewRunID func() int64
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) runID() int64 {
	if e.NewRunID != nil {
		return e.NewRunID()
	}
	return util.NewRunID()
}

func (e *Env) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}
