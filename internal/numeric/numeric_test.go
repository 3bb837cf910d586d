package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinear(t *testing.T) {
	v := []float64{4, 1, 3, 2, math.NaN()}
	assert.InDelta(t, 1.75, Quantile(v, 0.25), 1e-12)
	assert.InDelta(t, 2.5, Quantile(v, 0.5), 1e-12)
	assert.InDelta(t, 3.4, Quantile(v, 0.8), 1e-12)
	assert.Equal(t, 4.0, Quantile(v, 1))
	assert.True(t, math.IsNaN(Quantile([]float64{math.NaN()}, 0.5)))
}

func TestMeanStdSample(t *testing.T) {
	m, s := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, m, 1e-12)
	assert.InDelta(t, 2.138089935, s, 1e-9)

	_, s = MeanStd([]float64{3})
	assert.True(t, math.IsNaN(s))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestMinMax(t *testing.T) {
	got := MinMax([]float64{2, 4, math.NaN(), 6})
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.5, got[1])
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 1.0, got[3])

	assert.Equal(t, []float64{0, 0}, MinMax([]float64{7, 7}))
}

func TestCutEqualWidth(t *testing.T) {
	v := []float64{0, 0.1, 0.3, 0.5, 0.7, 0.9, 1}
	edges := CutEdges(v, 5)
	assert.Len(t, edges, 6)
	assert.Less(t, edges[0], 0.0)
	assert.Equal(t, []int{0, 0, 1, 2, 3, 4, 4}, Cut(v, edges))
}

func TestCutConstantColumnLandsInMiddleBin(t *testing.T) {
	v := []float64{0, 0, 0}
	assert.Equal(t, []int{1, 1, 1}, Cut(v, CutEdges(v, 3)))
}

func TestCutStableUnderShift(t *testing.T) {
	base := []float64{1, 3, 4, 9, 12, 20, 21}
	shifted := make([]float64, len(base))
	for i, x := range base {
		shifted[i] = x + 1000
	}
	a := MinMax(base)
	b := MinMax(shifted)
	assert.Equal(t, Cut(a, CutEdges(a, 5)), Cut(b, CutEdges(b, 5)))
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 2.0, RoundHalfEven(2.5))
	assert.Equal(t, 4.0, RoundHalfEven(3.5))
	assert.Equal(t, -2.0, RoundHalfEven(-2.5))
}
