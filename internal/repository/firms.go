package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/model"
)

// FirmsRepository reads the tenant registry of the admin schema and the
// analyses each tenant subscribed to.
type FirmsRepository interface {
	List(ctx context.Context) ([]model.Firm, error)
	Get(ctx context.Context, id int64) (*model.Firm, error)
	Metrics(ctx context.Context, firm model.Firm) ([]model.AnalyticMetric, error)
}

type FirmsRepositoryImpl struct {
	db    *sqlx.DB
	admin string
}

func NewFirmsRepository(db *sqlx.DB, adminSchema string) *FirmsRepositoryImpl {
	return &FirmsRepositoryImpl{db: db, admin: adminSchema}
}

var _ FirmsRepository = (*FirmsRepositoryImpl)(nil)

const firmColumns = `DISTINCT ID, FIRM_NAME,
		       COALESCE(CONN_DATA_USER_ELT, '') AS CONN_DATA_USER_ELT,
		       COALESCE(CONN_DATA_USER_CDP, '') AS CONN_DATA_USER_CDP`

func (r *FirmsRepositoryImpl) List(ctx context.Context) ([]model.Firm, error) {
	table, err := qualified(r.admin, "FIRMS_STG")
	if err != nil {
		return nil, err
	}
	var firms []model.Firm
	q := "SELECT " + firmColumns + " FROM " + table + " ORDER BY ID"
	if err := r.db.SelectContext(ctx, &firms, q); err != nil {
		return nil, fmt.Errorf("list firms: %w", err)
	}
	return firms, nil
}

func (r *FirmsRepositoryImpl) Get(ctx context.Context, id int64) (*model.Firm, error) {
	table, err := qualified(r.admin, "FIRMS_STG")
	if err != nil {
		return nil, err
	}
	var f model.Firm
	q := "SELECT " + firmColumns + " FROM " + table + " WHERE ID = ? LIMIT 1"
	err = r.db.GetContext(ctx, &f, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.DataUnavailable("firm %d is not registered", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get firm %d: %w", id, err)
	}
	return &f, nil
}

func (r *FirmsRepositoryImpl) Metrics(ctx context.Context, firm model.Firm) ([]model.AnalyticMetric, error) {
	table, err := qualified(firm.OutputSchema(), "ANALYTIC_METRICS")
	if err != nil {
		return nil, err
	}
	var ms []model.AnalyticMetric
	q := "SELECT METRIC_ID, DISPLAY_NAME, WORKING_DAY_PERIOD FROM " + table + " ORDER BY METRIC_ID"
	if err := r.db.SelectContext(ctx, &ms, q); err != nil {
		return nil, fmt.Errorf("metrics of firm %d: %w", firm.ID, err)
	}
	return ms, nil
}

// Register upserts firm into FIRMS_STG and replaces its ANALYTIC_METRICS
// rows in one transaction. Used to bootstrap development warehouses.
func (r *FirmsRepositoryImpl) Register(ctx context.Context, firm model.Firm, metrics []model.AnalyticMetric) error {
	firms, err := qualified(r.admin, "FIRMS_STG")
	if err != nil {
		return err
	}
	subs, err := qualified(firm.OutputSchema(), "ANALYTIC_METRICS")
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+firms+` (ID, FIRM_NAME, CONN_DATA_USER_ELT, CONN_DATA_USER_CDP)
			VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))
			ON DUPLICATE KEY UPDATE
			  FIRM_NAME = VALUES(FIRM_NAME),
			  CONN_DATA_USER_ELT = VALUES(CONN_DATA_USER_ELT),
			  CONN_DATA_USER_CDP = VALUES(CONN_DATA_USER_CDP)
		`, firm.ID, firm.Name, firm.ELTSchema, firm.CDPSchema)
		if err != nil {
			return fmt.Errorf("register firm %d: %w", firm.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+subs); err != nil {
			return fmt.Errorf("clear metrics of firm %d: %w", firm.ID, err)
		}
		for _, m := range metrics {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO "+subs+" (METRIC_ID, DISPLAY_NAME, WORKING_DAY_PERIOD) VALUES (?, ?, ?)",
				m.MetricID, m.DisplayName, m.PeriodDays)
			if err != nil {
				return fmt.Errorf("subscribe firm %d to metric %d: %w", firm.ID, m.MetricID, err)
			}
		}
		return nil
	})
}
