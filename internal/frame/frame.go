// Package frame is a small columnar table used to move per-customer metrics
// between the warehouse, snapshot files and the analytics core.
package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
)

type Kind uint8

const (
	Float Kind = iota
	String
	Category
	Time
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case Category:
		return "category"
	case Time:
		return "time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Column holds one typed vector. Nulls: NaN for Float, code -1 for Category,
// zero time for Time. String columns have no null.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Times   []time.Time
	Codes   []int32
	Levels  []string
}

func NewFloat(name string, v []float64) *Column {
	return &Column{Name: name, Kind: Float, Floats: v}
}

func NewString(name string, v []string) *Column {
	return &Column{Name: name, Kind: String, Strings: v}
}

func NewTime(name string, v []time.Time) *Column {
	return &Column{Name: name, Kind: Time, Times: v}
}

func NewCategory(name string, levels []string, codes []int32) *Column {
	return &Column{Name: name, Kind: Category, Levels: levels, Codes: codes}
}

func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case String:
		return len(c.Strings)
	case Category:
		return len(c.Codes)
	case Time:
		return len(c.Times)
	}
	return 0
}

func (c *Column) IsNull(i int) bool {
	switch c.Kind {
	case Float:
		return math.IsNaN(c.Floats[i])
	case Category:
		return c.Codes[i] < 0
	case Time:
		return c.Times[i].IsZero()
	}
	return false
}

// Level returns the category label of row i, or "" when null.
func (c *Column) Level(i int) string {
	if c.Codes[i] < 0 {
		return ""
	}
	return c.Levels[c.Codes[i]]
}

// Format renders row i as text; ok is false for nulls.
func (c *Column) Format(i int) (string, bool) {
	if c.IsNull(i) {
		return "", false
	}
	switch c.Kind {
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64), true
	case String:
		return c.Strings[i], true
	case Category:
		return c.Level(i), true
	case Time:
		return c.Times[i].Format("20060102"), true
	}
	return "", false
}

// Value returns row i as a driver-friendly value (nil for nulls).
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.Kind {
	case Float:
		return c.Floats[i]
	case String:
		return c.Strings[i]
	case Category:
		return c.Level(i)
	case Time:
		return c.Times[i]
	}
	return nil
}

func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.Floats = append([]float64(nil), c.Floats...)
	case String:
		out.Strings = append([]string(nil), c.Strings...)
	case Category:
		out.Codes = append([]int32(nil), c.Codes...)
		out.Levels = append([]string(nil), c.Levels...)
	case Time:
		out.Times = append([]time.Time(nil), c.Times...)
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	case String:
		out.Strings = make([]string, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
		}
	case Category:
		out.Levels = append([]string(nil), c.Levels...)
		out.Codes = make([]int32, len(idx))
		for j, i := range idx {
			out.Codes[j] = c.Codes[i]
		}
	case Time:
		out.Times = make([]time.Time, len(idx))
		for j, i := range idx {
			out.Times[j] = c.Times[i]
		}
	}
	return out
}

// Frame is an ordered set of equally long named columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

func New() *Frame {
	return &Frame{index: make(map[string]int)}
}

// FromColumns builds a frame, failing when lengths disagree or names repeat.
func FromColumns(cols ...*Column) (*Frame, error) {
	f := New()
	for _, c := range cols {
		if f.Has(c.Name) {
			return nil, fmt.Errorf("frame: duplicate column %q", c.Name)
		}
		if err := f.Set(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) Width() int { return len(f.cols) }

func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

func (f *Frame) Columns() []*Column { return f.cols }

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or a SchemaMismatch error.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, apperrors.SchemaMismatch("missing column %s", name)
	}
	return f.cols[i], nil
}

// Floats returns the backing slice of a Float column.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Float {
		return nil, apperrors.SchemaMismatch("column %s is %s, want float", name, c.Kind)
	}
	return c.Floats, nil
}

// Strings returns the backing slice of a String column.
func (f *Frame) Strings(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != String {
		return nil, apperrors.SchemaMismatch("column %s is %s, want string", name, c.Kind)
	}
	return c.Strings, nil
}

// Set appends c, or replaces the column of the same name in place.
func (f *Frame) Set(c *Column) error {
	if len(f.cols) > 0 && c.Len() != f.rows {
		return fmt.Errorf("frame: column %q has %d rows, frame has %d", c.Name, c.Len(), f.rows)
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return nil
	}
	if len(f.cols) == 0 {
		f.rows = c.Len()
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

func (f *Frame) SetFloats(name string, v []float64) error { return f.Set(NewFloat(name, v)) }

func (f *Frame) SetStrings(name string, v []string) error { return f.Set(NewString(name, v)) }

func (f *Frame) SetTimes(name string, v []time.Time) error { return f.Set(NewTime(name, v)) }

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.reindex()
	if len(f.cols) == 0 {
		f.rows = 0
	}
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
}

// Select returns a new frame with the named columns (shared backing data).
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New()
	for _, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		if err := out.Set(c); err != nil {
			return nil, err
		}
	}
	out.rows = f.rows
	return out, nil
}

// Take returns a new frame holding rows idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := New()
	for _, c := range f.cols {
		_ = out.Set(c.take(idx))
	}
	out.rows = len(idx)
	return out
}

// Filter keeps rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	idx := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

func (f *Frame) Clone() *Frame {
	out := New()
	for _, c := range f.cols {
		_ = out.Set(c.Clone())
	}
	out.rows = f.rows
	return out
}

// Concat stacks frames with identical column names and kinds. Category
// columns are re-coded against the union of levels by name.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return New(), nil
	}
	first := frames[0]
	out := New()
	total := 0
	for _, fr := range frames {
		total += fr.rows
	}
	for _, proto := range first.cols {
		merged := &Column{Name: proto.Name, Kind: proto.Kind}
		levelIdx := map[string]int32{}
		for _, fr := range frames {
			c, err := fr.Column(proto.Name)
			if err != nil {
				return nil, err
			}
			if c.Kind != proto.Kind {
				return nil, apperrors.SchemaMismatch("concat: column %s is %s and %s", proto.Name, proto.Kind, c.Kind)
			}
			switch c.Kind {
			case Float:
				merged.Floats = append(merged.Floats, c.Floats...)
			case String:
				merged.Strings = append(merged.Strings, c.Strings...)
			case Time:
				merged.Times = append(merged.Times, c.Times...)
			case Category:
				for _, code := range c.Codes {
					if code < 0 {
						merged.Codes = append(merged.Codes, -1)
						continue
					}
					lvl := c.Levels[code]
					nc, ok := levelIdx[lvl]
					if !ok {
						nc = int32(len(merged.Levels))
						levelIdx[lvl] = nc
						merged.Levels = append(merged.Levels, lvl)
					}
					merged.Codes = append(merged.Codes, nc)
				}
			}
		}
		if err := out.Set(merged); err != nil {
			return nil, err
		}
	}
	for _, fr := range frames[1:] {
		if fr.Width() != first.Width() {
			return nil, apperrors.SchemaMismatch("concat: %d columns vs %d", fr.Width(), first.Width())
		}
	}
	out.rows = total
	return out, nil
}

// AsCategory converts a Float or String column into a Category column with
// sorted levels. Whole floats are rendered without a fractional part so that
// program ids read as numbers become "12", not "12.0".
func AsCategory(c *Column) (*Column, error) {
	switch c.Kind {
	case Category:
		return c, nil
	case Float:
		distinct := map[float64]bool{}
		for _, v := range c.Floats {
			if !math.IsNaN(v) {
				distinct[v] = true
			}
		}
		vals := make([]float64, 0, len(distinct))
		for v := range distinct {
			vals = append(vals, v)
		}
		sort.Float64s(vals)
		levels := make([]string, len(vals))
		pos := make(map[float64]int32, len(vals))
		for i, v := range vals {
			levels[i] = strconv.FormatFloat(v, 'f', -1, 64)
			pos[v] = int32(i)
		}
		codes := make([]int32, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				codes[i] = -1
				continue
			}
			codes[i] = pos[v]
		}
		return NewCategory(c.Name, levels, codes), nil
	case String:
		distinct := map[string]bool{}
		for _, v := range c.Strings {
			distinct[v] = true
		}
		levels := make([]string, 0, len(distinct))
		for v := range distinct {
			levels = append(levels, v)
		}
		sort.Strings(levels)
		pos := make(map[string]int32, len(levels))
		for i, v := range levels {
			pos[v] = int32(i)
		}
		codes := make([]int32, len(c.Strings))
		for i, v := range c.Strings {
			codes[i] = pos[v]
		}
		return NewCategory(c.Name, levels, codes), nil
	}
	return nil, apperrors.SchemaMismatch("column %s of kind %s cannot be categorical", c.Name, c.Kind)
}
