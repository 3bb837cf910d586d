package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FromRecords builds a frame from scanned rows (column name -> driver value).
// A column becomes Float when every non-null value is numeric (or numeric text),
// Time when every non-null value is a time.Time, String otherwise.
func FromRecords(names []string, rows []map[string]any) *Frame {
	f := New()
	for _, name := range names {
		_ = f.Set(buildColumn(name, rows))
	}
	f.rows = len(rows)
	return f
}

func buildColumn(name string, rows []map[string]any) *Column {
	kind := inferKind(name, rows)
	switch kind {
	case Float:
		v := make([]float64, len(rows))
		for i, r := range rows {
			v[i] = toFloat(r[name])
		}
		return NewFloat(name, v)
	case Time:
		v := make([]time.Time, len(rows))
		for i, r := range rows {
			if t, ok := r[name].(time.Time); ok {
				v[i] = t
			}
		}
		return NewTime(name, v)
	default:
		v := make([]string, len(rows))
		for i, r := range rows {
			v[i] = toString(r[name])
		}
		return NewString(name, v)
	}
}

func inferKind(name string, rows []map[string]any) Kind {
	sawTime, sawNumber := false, false
	for _, r := range rows {
		switch x := r[name].(type) {
		case nil:
		case time.Time:
			sawTime = true
		case int64, int32, int, float64, float32, uint64, uint32:
			sawNumber = true
		case []byte:
			if _, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64); err != nil {
				return String
			}
			sawNumber = true
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
				return String
			}
			sawNumber = true
		default:
			return String
		}
	}
	switch {
	case sawTime && !sawNumber:
		return Time
	case sawTime && sawNumber:
		return String
	}
	return Float
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case int:
		return float64(x)
	case uint64:
		return float64(x)
	case uint32:
		return float64(x)
	case float64:
		return x
	case float32:
		return float64(x)
	case []byte:
		if f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
