// Package numeric holds the batch statistics shared by segmentation and
// churn preparation.
package numeric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NonNull returns the non-NaN values of v in a new slice.
func NonNull(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Quantile returns the q-quantile of the non-null values using linear
// interpolation between closest ranks (h = (n-1)q), the warehouse analysts'
// convention. NaN when there is no data.
func Quantile(v []float64, q float64) float64 {
	x := NonNull(v)
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	return sortedQuantile(x, q)
}

func sortedQuantile(x []float64, q float64) float64 {
	h := float64(len(x)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(x) {
		return x[len(x)-1]
	}
	return x[i] + (h-lo)*(x[i+1]-x[i])
}

// Quartiles returns Q1 and Q3 of the non-null values.
func Quartiles(v []float64) (q1, q3 float64) {
	x := NonNull(v)
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(x)
	return sortedQuantile(x, 0.25), sortedQuantile(x, 0.75)
}

// MeanStd returns the mean and sample standard deviation of non-null values.
func MeanStd(v []float64) (mean, std float64) {
	x := NonNull(v)
	switch len(x) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return x[0], math.NaN()
	}
	return stat.MeanStdDev(x, nil)
}

// Median of non-null values, NaN when empty.
func Median(v []float64) float64 {
	m, err := stats.Median(NonNull(v))
	if err != nil {
		return math.NaN()
	}
	return m
}

// MinMax scales non-null values into [0,1]. A constant column maps to 0.
func MinMax(v []float64) []float64 {
	out := make([]float64, len(v))
	x := NonNull(v)
	if len(x) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	lo, hi := floats.Min(x), floats.Max(x)
	rng := hi - lo
	for i, val := range v {
		switch {
		case math.IsNaN(val):
			out[i] = math.NaN()
		case rng == 0:
			out[i] = 0
		default:
			out[i] = (val - lo) / rng
		}
	}
	return out
}

// CutEdges returns bins+1 equal-width edges over [min,max] of the non-null
// values: right-closed intervals whose first edge is pushed down by 0.1% of the
// range so the minimum falls in the first bin. A constant column is widened by
// 0.1% of its magnitude (or 0.001) on both sides.
func CutEdges(v []float64, bins int) []float64 {
	x := NonNull(v)
	if len(x) == 0 || bins < 1 {
		return nil
	}
	lo, hi := floats.Min(x), floats.Max(x)
	if lo == hi {
		pad := 0.001
		if lo != 0 {
			pad = 0.001 * math.Abs(lo)
		}
		lo -= pad
		hi += pad
		return span(lo, hi, bins)
	}
	edges := span(lo, hi, bins)
	edges[0] -= (hi - lo) * 0.001
	return edges
}

func span(lo, hi float64, bins int) []float64 {
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	edges[bins] = hi
	return edges
}

// Cut assigns each value the index of its right-closed bin in edges, -1 for
// NaN or values outside the edges.
func Cut(v []float64, edges []float64) []int {
	out := make([]int, len(v))
	for i, val := range v {
		out[i] = -1
		if math.IsNaN(val) || len(edges) < 2 {
			continue
		}
		if val <= edges[0] || val > edges[len(edges)-1] {
			continue
		}
		// first edge >= val closes the bin on the right
		j := sort.SearchFloat64s(edges, val)
		out[i] = j - 1
	}
	return out
}

// RoundHalfEven rounds to the nearest integer, ties to even.
func RoundHalfEven(x float64) float64 {
	return math.RoundToEven(x)
}
