package gbdt

import (
	"fmt"
	"math"
	"sort"
)

// Model is a trained ensemble. Scores are InitScore plus the sum of tree
// outputs, mapped through the logistic function.
type Model struct {
	Features      []Feature `json:"features"`
	InitScore     float64   `json:"init_score"`
	Trees         []Tree    `json:"trees"`
	BestIteration int       `json:"best_iteration"`
}

// PredictRaw returns the margin for one row ordered like m.Features.
func (m *Model) PredictRaw(row []float64) float64 {
	s := m.InitScore
	for i := range m.Trees {
		s += m.Trees[i].predict(row)
	}
	return s
}

// Predict returns the positive-class probability for one row.
func (m *Model) Predict(row []float64) float64 {
	return sigmoid(m.PredictRaw(row))
}

// PredictDataset scores every row of d.
func (m *Model) PredictDataset(d *Dataset) []float64 {
	out := make([]float64, d.Rows())
	row := make([]float64, len(d.Columns))
	for i := range out {
		for j, c := range d.Columns {
			row[j] = c[i]
		}
		out[i] = m.Predict(row)
	}
	return out
}

// Validate checks the structure of a decoded model.
func (m *Model) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("gbdt: model has no features")
	}
	if math.IsNaN(m.InitScore) || math.IsInf(m.InitScore, 0) {
		return fmt.Errorf("gbdt: init score is not finite")
	}
	for t, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("gbdt: tree %d is empty", t)
		}
		for k, n := range tree.Nodes {
			if n.isLeaf() {
				if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
					return fmt.Errorf("gbdt: tree %d leaf %d is not finite", t, k)
				}
				continue
			}
			if n.Feature >= len(m.Features) {
				return fmt.Errorf("gbdt: tree %d node %d uses feature %d of %d", t, k, n.Feature, len(m.Features))
			}
			if n.Left <= k || n.Right <= k || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("gbdt: tree %d node %d has bad children", t, k)
			}
			if n.Categories != nil && !m.Features[n.Feature].Categorical {
				return fmt.Errorf("gbdt: tree %d node %d splits numeric feature on categories", t, k)
			}
		}
	}
	return nil
}

// Importance is the split count and total gain of one feature.
type Importance struct {
	Feature string
	Splits  int
	Gain    float64
}

// Importance reports every feature, most used first; ties keep model order.
func (m *Model) Importance() []Importance {
	out := make([]Importance, len(m.Features))
	for j, f := range m.Features {
		out[j].Feature = f.Name
	}
	for _, tree := range m.Trees {
		for _, n := range tree.Nodes {
			if n.isLeaf() {
				continue
			}
			out[n.Feature].Splits++
			out[n.Feature].Gain += n.Gain
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Splits > out[b].Splits })
	return out
}
