// Package outlier flags numeric columns dominated by extreme values and caps
// them on a square-root scale.
package outlier

import (
	"math"

	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/numeric"
)

// DefaultThreshold is the share of IQR×3 outliers above which a column is flagged.
const DefaultThreshold = 0.01

// iqrFactor widens the interquartile fence for "extreme" outliers.
const iqrFactor = 3.0

// DetectExtremeColumns returns, in frame order, the Float columns whose share of
// values outside [Q1-3·IQR, Q3+3·IQR] is strictly greater than threshold.
// All-null and zero-variance columns are skipped.
func DetectExtremeColumns(f *frame.Frame, threshold float64, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	var flagged []string
	for _, c := range f.Columns() {
		if c.Kind != frame.Float || skip[c.Name] {
			continue
		}
		if extremeRatio(c.Floats) > threshold {
			flagged = append(flagged, c.Name)
		}
	}
	return flagged
}

// extremeRatio is 0 for degenerate columns (no data, constant values).
func extremeRatio(v []float64) float64 {
	x := numeric.NonNull(v)
	if len(x) == 0 {
		return 0
	}
	if _, std := numeric.MeanStd(x); std == 0 {
		return 0
	}
	q1, q3 := numeric.Quartiles(x)
	iqr := q3 - q1
	lower, upper := q1-iqrFactor*iqr, q3+iqrFactor*iqr

	n := 0
	for _, val := range x {
		if val < lower || val > upper {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

// Suppress returns a copy of f where every listed column is replaced by its
// square root capped at mean+3·std of the square-rooted values. Negative
// inputs become NaN and stay NaN.
func Suppress(f *frame.Frame, columns []string) (*frame.Frame, error) {
	out := f.Clone()
	for _, name := range columns {
		v, err := out.Floats(name)
		if err != nil {
			return nil, err
		}
		if err := out.SetFloats(name, capSqrt(v)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func capSqrt(v []float64) []float64 {
	t := make([]float64, len(v))
	for i, x := range v {
		t[i] = math.Sqrt(x)
	}
	mean, std := numeric.MeanStd(t)
	limit := mean + 3*std
	if math.IsNaN(limit) {
		return t
	}
	for i, x := range t {
		if x > limit {
			t[i] = limit
		}
	}
	return t
}
