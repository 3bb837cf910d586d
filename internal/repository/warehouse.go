package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
)

// DefaultInsertBatch is the number of rows per INSERT and per commit.
const DefaultInsertBatch = 1000

// Warehouse reads raw metrics from and writes analytic results to the
// per-firm schemas of the relational warehouse.
type Warehouse interface {
	Fetch(ctx context.Context, query string) (*frame.Frame, error)
	Exec(ctx context.Context, query string) error
	Columns(ctx context.Context, schema, table string) ([]string, error)
	Insert(ctx context.Context, schema, table string, f *frame.Frame) (int, error)
	DeleteAll(ctx context.Context, schema, table string) error
}

type WarehouseImpl struct {
	db        *sqlx.DB
	batchSize int
}

func NewWarehouse(db *sqlx.DB, batchSize int) *WarehouseImpl {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatch
	}
	return &WarehouseImpl{db: db, batchSize: batchSize}
}

var _ Warehouse = (*WarehouseImpl)(nil)

// Fetch runs query and returns the result with upper-cased column names.
func (r *WarehouseImpl) Fetch(ctx context.Context, query string) (*frame.Frame, error) {
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.DataUnavailable("%v", err), "warehouse query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strings.ToUpper(c)
	}

	var records []map[string]any
	for rows.Next() {
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan warehouse row: %w", err)
		}
		rec := make(map[string]any, len(m))
		for k, v := range m {
			rec[strings.ToUpper(k)] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.DataUnavailable("%v", err), "warehouse read")
	}
	return frame.FromRecords(names, records), nil
}

func (r *WarehouseImpl) Exec(ctx context.Context, query string) error {
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("warehouse exec: %w", err)
	}
	return nil
}

// Columns lists the upper-cased column names of schema.table.
func (r *WarehouseImpl) Columns(ctx context.Context, schema, table string) ([]string, error) {
	var cols []string
	err := r.db.SelectContext(ctx, &cols, `
		SELECT UPPER(COLUMN_NAME)
		  FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE UPPER(TABLE_SCHEMA) = UPPER(?) AND UPPER(TABLE_NAME) = UPPER(?)
		 ORDER BY ORDINAL_POSITION
	`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", schema, table, err)
	}
	return cols, nil
}

// Insert writes the columns of f that exist in schema.table, batchSize rows
// per statement, committing each batch. On failure the rows of earlier
// batches stay written and their count is returned with a WriteFailure.
func (r *WarehouseImpl) Insert(ctx context.Context, schema, table string, f *frame.Frame) (int, error) {
	target, err := qualified(schema, table)
	if err != nil {
		return 0, err
	}
	tableCols, err := r.Columns(ctx, schema, table)
	if err != nil {
		return 0, apperrors.WriteFailure(table, err)
	}
	cols := matchColumns(f, tableCols)
	if len(cols) == 0 {
		return 0, apperrors.SchemaMismatch("%s.%s shares no columns with the output", schema, table)
	}

	written := 0
	for _, b := range batches(f.Len(), r.batchSize) {
		n := b[1] - b[0]
		q, err := insertSQL(target, names(cols), n)
		if err != nil {
			return written, err
		}
		args := make([]any, 0, n*len(cols))
		for i := b[0]; i < b[1]; i++ {
			args = rowValues(args, cols, i)
		}
		if err := r.execBatch(ctx, q, args); err != nil {
			return written, apperrors.WriteFailure(schema+"."+table, err)
		}
		written += n
	}
	return written, nil
}

func (r *WarehouseImpl) execBatch(ctx context.Context, q string, args []any) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	})
}

func (r *WarehouseImpl) DeleteAll(ctx context.Context, schema, table string) error {
	target, err := qualified(schema, table)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+target); err != nil {
		return apperrors.WriteFailure(schema+"."+table, err)
	}
	return nil
}

// matchColumns keeps the frame columns present in tableCols, in frame order.
func matchColumns(f *frame.Frame, tableCols []string) []*frame.Column {
	known := make(map[string]bool, len(tableCols))
	for _, c := range tableCols {
		known[strings.ToUpper(c)] = true
	}
	var out []*frame.Column
	for _, c := range f.Columns() {
		if known[strings.ToUpper(c.Name)] {
			out = append(out, c)
		}
	}
	return out
}

func names(cols []*frame.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func rowValues(dst []any, cols []*frame.Column, i int) []any {
	for _, c := range cols {
		dst = append(dst, c.Value(i))
	}
	return dst
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
