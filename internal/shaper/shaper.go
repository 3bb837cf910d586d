package shaper

import (
	"database/sql"
	"math"
	"strconv"
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
)

// Record is one long-format (customer, metric, value) triple.
type Record struct {
	CustomerID string
	Metric     string
	Value      sql.NullString
}

// Melt turns the schema's metric columns of f into long records, customer by
// customer in row order. Columns outside the schema are ignored; a declared
// metric missing from f is a schema mismatch.
func Melt(f *frame.Frame, s Schema) ([]Record, error) {
	key, err := f.Column(KeyColumn)
	if err != nil {
		return nil, err
	}
	cols := make([]*frame.Column, len(s.Metrics))
	for i, m := range s.Metrics {
		if cols[i], err = f.Column(m.Name); err != nil {
			return nil, apperrors.Wrapf(err, "melt %s", s.Name)
		}
	}

	out := make([]Record, 0, f.Len()*len(cols))
	for i := 0; i < f.Len(); i++ {
		id, _ := key.Format(i)
		for j, c := range cols {
			v, ok := c.Format(i)
			out = append(out, Record{CustomerID: id, Metric: s.Metrics[j].Name, Value: sql.NullString{String: v, Valid: ok}})
		}
	}
	return out, nil
}

// Pivot builds the wide table: KeyColumn followed by one column per metric
// code in schema order. Customers keep first-appearance order. A repeated
// (customer, metric) pair keeps its first non-null value and is counted in
// repeats; values are never combined. Undeclared metrics are rejected and
// metrics a customer has no record for are null.
func Pivot(records []Record, s Schema) (wide *frame.Frame, repeats int, err error) {
	metrics := s.byName()
	pos := make(map[string]int, len(s.Metrics))
	for i, m := range s.Metrics {
		pos[m.Name] = i
	}

	var ids []string
	rowOf := map[string]int{}
	var cells [][]sql.NullString
	var filled [][]bool
	for _, r := range records {
		if _, ok := metrics[r.Metric]; !ok {
			return nil, 0, apperrors.SchemaMismatch("pivot %s: undeclared metric %q", s.Name, r.Metric)
		}
		row, ok := rowOf[r.CustomerID]
		if !ok {
			row = len(ids)
			rowOf[r.CustomerID] = row
			ids = append(ids, r.CustomerID)
			cells = append(cells, make([]sql.NullString, len(s.Metrics)))
			filled = append(filled, make([]bool, len(s.Metrics)))
		}
		j := pos[r.Metric]
		if filled[row][j] {
			repeats++
			if cells[row][j].Valid {
				continue
			}
		}
		filled[row][j] = true
		cells[row][j] = r.Value
	}

	out := frame.New()
	if err := out.Set(frame.NewString(KeyColumn, ids)); err != nil {
		return nil, 0, err
	}
	for j, m := range s.Metrics {
		col, err := typed(m, cells, j)
		if err != nil {
			return nil, 0, err
		}
		if err := out.Set(col); err != nil {
			return nil, 0, err
		}
	}
	return out, repeats, nil
}

func typed(m Metric, cells [][]sql.NullString, j int) (*frame.Column, error) {
	switch m.Kind {
	case frame.Float:
		v := make([]float64, len(cells))
		for i, row := range cells {
			c := row[j]
			if !c.Valid {
				v[i] = math.NaN()
				continue
			}
			x, err := strconv.ParseFloat(c.String, 64)
			if err != nil {
				return nil, apperrors.SchemaMismatch("pivot: %s value %q is not numeric", m.Name, c.String)
			}
			v[i] = x
		}
		return frame.NewFloat(m.Code, v), nil
	default:
		var levels []string
		index := map[string]int32{}
		codes := make([]int32, len(cells))
		for i, row := range cells {
			c := row[j]
			if !c.Valid {
				codes[i] = -1
				continue
			}
			code, ok := index[c.String]
			if !ok {
				code = int32(len(levels))
				index[c.String] = code
				levels = append(levels, c.String)
			}
			codes[i] = code
		}
		return frame.NewCategory(m.Code, levels, codes), nil
	}
}

// Unpivot reverses Pivot: for every customer row it emits one record per
// declared metric, nulls included, in schema order.
func Unpivot(wide *frame.Frame, s Schema) ([]Record, error) {
	codes := s.byCode()
	for _, name := range wide.Names() {
		if name == KeyColumn {
			continue
		}
		if _, ok := codes[name]; !ok {
			return nil, apperrors.SchemaMismatch("unpivot %s: unexpected column %s", s.Name, name)
		}
	}
	key, err := wide.Column(KeyColumn)
	if err != nil {
		return nil, err
	}
	cols := make([]*frame.Column, len(s.Metrics))
	for i, m := range s.Metrics {
		if cols[i], err = wide.Column(m.Code); err != nil {
			return nil, err
		}
	}

	out := make([]Record, 0, wide.Len()*len(cols))
	for i := 0; i < wide.Len(); i++ {
		id, _ := key.Format(i)
		for j, c := range cols {
			v, ok := c.Format(i)
			out = append(out, Record{CustomerID: id, Metric: s.Metrics[j].Name, Value: sql.NullString{String: v, Valid: ok}})
		}
	}
	return out, nil
}

// Audit carries the bookkeeping columns stamped on every output row.
type Audit struct {
	FirmID int64
	User   string
	Now    time.Time
}

// Stamp appends CREATE_DATE, UPDATE_DATE, FIRM_ID, CREATED_BY and UPDATED_BY
// to a copy of wide. Dates are truncated to the day.
func Stamp(wide *frame.Frame, a Audit) (*frame.Frame, error) {
	out := wide.Clone()
	n := out.Len()
	day := time.Date(a.Now.Year(), a.Now.Month(), a.Now.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	firm := make([]float64, n)
	users := make([]string, n)
	for i := 0; i < n; i++ {
		dates[i] = day
		firm[i] = float64(a.FirmID)
		users[i] = a.User
	}
	for _, c := range []*frame.Column{
		frame.NewTime("CREATE_DATE", dates),
		frame.NewTime("UPDATE_DATE", append([]time.Time(nil), dates...)),
		frame.NewFloat("FIRM_ID", firm),
		frame.NewString("CREATED_BY", users),
		frame.NewString("UPDATED_BY", append([]string(nil), users...)),
	} {
		if err := out.Set(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Shape is Melt, Pivot and Stamp in one step. repeats is the Pivot count.
func Shape(f *frame.Frame, s Schema, a Audit) (*frame.Frame, int, error) {
	records, err := Melt(f, s)
	if err != nil {
		return nil, 0, err
	}
	wide, repeats, err := Pivot(records, s)
	if err != nil {
		return nil, 0, err
	}
	out, err := Stamp(wide, a)
	if err != nil {
		return nil, 0, err
	}
	return out, repeats, nil
}
