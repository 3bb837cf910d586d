package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PerformanceFact is one churn validation report.
type PerformanceFact struct {
	RunID     int64     `db:"run_id" json:"run_id"`
	FirmID    int64     `db:"firm_id" json:"firm_id"`
	Schema    string    `db:"schema" json:"schema"`
	AUC       float64   `db:"auc" json:"auc"`
	Accuracy  float64   `db:"accuracy" json:"accuracy"`
	Precision float64   `db:"precision" json:"precision"`
	Recall    float64   `db:"recall" json:"recall"`
	F1        float64   `db:"f1" json:"f1"`
	TN        int64     `db:"tn" json:"tn"`
	FP        int64     `db:"fp" json:"fp"`
	FN        int64     `db:"fn" json:"fn"`
	TP        int64     `db:"tp" json:"tp"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ImportanceFact is one feature of a trained churn model.
type ImportanceFact struct {
	RunID     int64
	FirmID    int64
	Schema    string
	Feature   string
	Splits    int64
	Gain      float64
	CreatedAt time.Time
}

// SegmentCount is the size of one segment label in a run.
type SegmentCount struct {
	RunID     int64
	FirmID    int64
	Schema    string
	Segment   string // column, e.g. CLV_SEGMENT
	Label     string
	Customers int64
	CreatedAt time.Time
}

// RunFactsRepository appends per-run analytics facts to ClickHouse.
type RunFactsRepository interface {
	InsertPerformance(ctx context.Context, f PerformanceFact) error
	InsertImportances(ctx context.Context, fs []ImportanceFact) error
	InsertSegmentCounts(ctx context.Context, cs []SegmentCount) error
	// ListPerformance returns the newest validation reports of schema first.
	ListPerformance(ctx context.Context, schema string, limit, offset int) ([]PerformanceFact, error)
}

type chRunFactsRepository struct {
	ch       *sqlx.DB // ClickHouse connection
	database string
}

func NewRunFactsRepository(ch *sqlx.DB, database string) RunFactsRepository {
	if database == "" {
		database = "crm"
	}
	return &chRunFactsRepository{ch: ch, database: database}
}

func (r *chRunFactsRepository) InsertPerformance(ctx context.Context, f PerformanceFact) error {
	return r.batch(ctx, "churn_performance",
		[]string{"run_id", "firm_id", "schema", "auc", "accuracy", "precision", "recall", "f1", "tn", "fp", "fn", "tp", "created_at"},
		[][]any{{f.RunID, f.FirmID, f.Schema, f.AUC, f.Accuracy, f.Precision, f.Recall, f.F1, f.TN, f.FP, f.FN, f.TP, f.CreatedAt}})
}

func (r *chRunFactsRepository) InsertImportances(ctx context.Context, fs []ImportanceFact) error {
	rows := make([][]any, len(fs))
	for i, f := range fs {
		rows[i] = []any{f.RunID, f.FirmID, f.Schema, f.Feature, f.Splits, f.Gain, f.CreatedAt}
	}
	return r.batch(ctx, "churn_feature_importance",
		[]string{"run_id", "firm_id", "schema", "feature", "splits", "gain", "created_at"}, rows)
}

func (r *chRunFactsRepository) InsertSegmentCounts(ctx context.Context, cs []SegmentCount) error {
	rows := make([][]any, len(cs))
	for i, c := range cs {
		rows[i] = []any{c.RunID, c.FirmID, c.Schema, c.Segment, c.Label, c.Customers, c.CreatedAt}
	}
	return r.batch(ctx, "segment_counts",
		[]string{"run_id", "firm_id", "schema", "segment", "label", "customers", "created_at"}, rows)
}

func (r *chRunFactsRepository) ListPerformance(ctx context.Context, schema string, limit, offset int) ([]PerformanceFact, error) {
	target, err := qualified(r.database, "churn_performance")
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
SELECT run_id, firm_id, schema, auc, accuracy, precision, recall, f1, tn, fp, fn, tp, created_at
FROM %s
WHERE schema = ?
ORDER BY created_at DESC, run_id DESC
LIMIT ? OFFSET ?`, target)

	var out []PerformanceFact
	if err := r.ch.SelectContext(ctx, &out, q, schema, limit, offset); err != nil {
		return nil, fmt.Errorf("clickhouse list churn_performance: %w", err)
	}
	return out, nil
}

// batch sends rows as one ClickHouse block: prepare once inside a
// transaction, Exec per row, Commit flushes.
func (r *chRunFactsRepository) batch(ctx context.Context, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	target, err := qualified(r.database, table)
	if err != nil {
		return err
	}
	q, err := insertSQL(target, cols, 0)
	if err != nil {
		return err
	}
	err = withTx(ctx, r.ch, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clickhouse insert %s: %w", table, err)
	}
	return nil
}
