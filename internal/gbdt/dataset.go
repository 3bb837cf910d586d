package gbdt

import (
	"fmt"
	"math"
	"sort"
)

// Feature describes one model input. Categorical features carry level codes
// 0..Levels-1 as float values; NaN and codes outside that range are missing.
type Feature struct {
	Name        string `json:"name"`
	Categorical bool   `json:"categorical,omitempty"`
	Levels      int    `json:"levels,omitempty"`
}

// Dataset is column-major: Columns[j][i] is feature j of row i.
type Dataset struct {
	Features []Feature
	Columns  [][]float64
	Label    []float64
	Weight   []float64 // optional
}

func (d *Dataset) Rows() int { return len(d.Label) }

// Row gathers the feature values of row i.
func (d *Dataset) Row(i int) []float64 {
	row := make([]float64, len(d.Columns))
	for j, c := range d.Columns {
		row[j] = c[i]
	}
	return row
}

func (d *Dataset) check() error {
	if len(d.Columns) != len(d.Features) {
		return fmt.Errorf("gbdt: %d columns for %d features", len(d.Columns), len(d.Features))
	}
	for j, c := range d.Columns {
		if len(c) != len(d.Label) {
			return fmt.Errorf("gbdt: feature %s has %d rows, labels %d", d.Features[j].Name, len(c), len(d.Label))
		}
	}
	if d.Weight != nil && len(d.Weight) != len(d.Label) {
		return fmt.Errorf("gbdt: %d weights for %d rows", len(d.Weight), len(d.Label))
	}
	for i, y := range d.Label {
		if y != 0 && y != 1 {
			return fmt.Errorf("gbdt: label %v at row %d is not binary", y, i)
		}
	}
	return nil
}

// binMapper maps raw feature values onto histogram bins. Bin 0 holds missing
// values; numeric bin k>0 holds values in (bounds[k-2], bounds[k-1]].
type binMapper struct {
	categorical bool
	bounds      []float64 // numeric upper bounds, last is +Inf
	levels      int
}

func (m *binMapper) numBins() int {
	if m.categorical {
		return m.levels + 1
	}
	return len(m.bounds) + 1
}

func (m *binMapper) bin(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if m.categorical {
		code := int(v)
		if v < 0 || code >= m.levels || float64(code) != v {
			return 0
		}
		return code + 1
	}
	return 1 + sort.SearchFloat64s(m.bounds, v)
}

// newBinMapper builds bins from the distinct values of v: one bin per value
// when they fit in maxBin, otherwise equal-frequency bins.
func newBinMapper(f Feature, v []float64, maxBin int) *binMapper {
	if f.Categorical {
		return &binMapper{categorical: true, levels: f.Levels}
	}
	x := make([]float64, 0, len(v))
	for _, val := range v {
		if !math.IsNaN(val) {
			x = append(x, val)
		}
	}
	sort.Float64s(x)
	distinct := x[:0:0]
	for i, val := range x {
		if i == 0 || val != x[i-1] {
			distinct = append(distinct, val)
		}
	}

	var bounds []float64
	if len(distinct) <= maxBin {
		for k := 0; k+1 < len(distinct); k++ {
			bounds = append(bounds, (distinct[k]+distinct[k+1])/2)
		}
	} else {
		for k := 1; k < maxBin; k++ {
			b := x[k*len(x)/maxBin]
			if len(bounds) == 0 || b > bounds[len(bounds)-1] {
				bounds = append(bounds, b)
			}
		}
	}
	bounds = append(bounds, math.Inf(1))
	return &binMapper{bounds: bounds}
}

// binned is the training matrix in bin space.
type binned struct {
	mappers []*binMapper
	bins    [][]uint16
}

func binDataset(d *Dataset, maxBin int) *binned {
	b := &binned{mappers: make([]*binMapper, len(d.Features)), bins: make([][]uint16, len(d.Features))}
	for j, f := range d.Features {
		m := newBinMapper(f, d.Columns[j], maxBin)
		col := make([]uint16, len(d.Columns[j]))
		for i, v := range d.Columns[j] {
			col[i] = uint16(m.bin(v))
		}
		b.mappers[j] = m
		b.bins[j] = col
	}
	return b
}
