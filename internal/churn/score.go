package churn

import (
	"math"
	"strconv"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/numeric"
)

const (
	// ScoreThreshold marks a scored customer as churning.
	ScoreThreshold = 0.6
	// HighRiskThreshold opens the high risk bucket.
	HighRiskThreshold = 0.95
)

// Risk classes written to CHURN_CLASS.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

var riskLevels = []string{RiskLow, RiskMedium, RiskHigh, RiskUnknown}

// RiskClass buckets a probability: [0,0.6) low, [0.6,0.95) medium,
// [0.95,1] high. Anything else is unknown.
func RiskClass(p float64) string {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return RiskUnknown
	case p < ScoreThreshold:
		return RiskLow
	case p < HighRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Probabilities scores every row of features.
func (a *Artifact) Probabilities(features *frame.Frame) ([]float64, error) {
	d, err := a.dataset(features, nil)
	if err != nil {
		return nil, err
	}
	return a.Model.PredictDataset(d), nil
}

// Score returns set.Info extended with CHURN_PROB, IS_CHURN, CHURN_CLASS and
// MODEL_ID.
func (a *Artifact) Score(set *ScoringSet) (*frame.Frame, error) {
	prob, err := a.Probabilities(set.Features)
	if err != nil {
		return nil, err
	}
	out := set.Info.Clone()
	n := len(prob)
	churned := make([]int32, n)
	class := make([]int32, n)
	model := make([]string, n)
	id := strconv.FormatInt(a.RunID, 10)
	for i, p := range prob {
		if p >= ScoreThreshold {
			churned[i] = 0
		} else {
			churned[i] = 1
		}
		class[i] = int32(indexOf(riskLevels, RiskClass(p)))
		model[i] = id
	}
	for _, c := range []*frame.Column{
		frame.NewFloat(ColProb, prob),
		frame.NewCategory(ColTarget, []string{LabelChurn, LabelNoChurn}, churned),
		frame.NewCategory(ColClass, append([]string(nil), riskLevels...), class),
		frame.NewString(ColModelID, model),
	} {
		if err := out.Set(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// ScoreRecords scores loosely typed rows such as decoded JSON objects. Every
// row must carry every model feature; an explicit null is a missing value.
// The round columns are zero-filled and rounded like PrepareScoring does.
func (a *Artifact) ScoreRecords(rows []map[string]any) ([]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	for i, r := range rows {
		for _, name := range a.Features {
			if _, ok := r[name]; !ok {
				return nil, apperrors.SchemaMismatch("record %d is missing feature %s", i, name)
			}
		}
	}
	f := frame.FromRecords(a.Features, rows)
	for _, name := range a.Features {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if _, ok := a.Levels[name]; ok {
			cat, err := frame.AsCategory(c)
			if err != nil {
				return nil, err
			}
			_ = f.Set(cat)
			continue
		}
		if c.Kind != frame.Float {
			return nil, apperrors.SchemaMismatch("feature %s must be numeric", name)
		}
		if indexOf(RoundColumns, name) >= 0 {
			for i, x := range c.Floats {
				if math.IsNaN(x) {
					x = 0
				}
				c.Floats[i] = numeric.RoundHalfEven(x)
			}
		}
	}
	return a.Probabilities(f)
}
