package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/crm-analytics/internal/model"
)

// JobLogRepository appends job status rows to STG_LOGS.
type JobLogRepository interface {
	Log(ctx context.Context, e model.JobEntry) error
}

type JobLogRepositoryImpl struct {
	db    *sqlx.DB
	admin string
	now   func() time.Time
}

func NewJobLogRepository(db *sqlx.DB, adminSchema string) *JobLogRepositoryImpl {
	return &JobLogRepositoryImpl{db: db, admin: adminSchema, now: time.Now}
}

var _ JobLogRepository = (*JobLogRepositoryImpl)(nil)

func (r *JobLogRepositoryImpl) Log(ctx context.Context, e model.JobEntry) error {
	table, err := qualified(r.admin, "STG_LOGS")
	if err != nil {
		return err
	}
	args, err := jobLogArgs(e, r.now())
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO `+table+` (FIRM_ID, METRIC_ID, JOB_TYPE, ETT_DATE, EXECUTION_START_DATE,
		                        EXECUTION_END_DATE, STATUS, LAST_UPDATE_DATE)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("log %s %s for firm %d: %w", e.JobType, e.Status, e.FirmID, err)
	}
	return nil
}

// jobLogArgs renders an entry in STG_LOGS column order. ETT_DATE is the
// YYYYMMDD of the start.
func jobLogArgs(e model.JobEntry, now time.Time) ([]any, error) {
	if !e.Status.Valid() {
		return nil, fmt.Errorf("invalid job status %q", e.Status)
	}
	end := sql.NullTime{Time: e.End, Valid: !e.End.IsZero()}
	return []any{
		e.FirmID,
		e.MetricID,
		e.JobType,
		e.Start.Format("20060102"),
		e.Start,
		end,
		e.Status.String(),
		now,
	}, nil
}
