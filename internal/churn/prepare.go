package churn

import (
	"math"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/numeric"
	"github.com/jmehdipour/crm-analytics/internal/outlier"
)

// TrainingSet is a prepared training batch. Features holds the model inputs
// with categorical columns typed as Category.
type TrainingSet struct {
	Features *frame.Frame
	Target   []float64
	Strata   []outlier.Stratum
}

// Positives counts churned customers in the set.
func (s *TrainingSet) Positives() int {
	n := 0
	for _, y := range s.Target {
		if y == 1 {
			n++
		}
	}
	return n
}

// ScoringSet is a prepared scoring batch plus the per-customer columns that
// accompany predictions.
type ScoringSet struct {
	Features *frame.Frame
	Info     *frame.Frame
}

// PrepareTraining suppresses outliers inside every (program, target) stratum,
// rounds the count and amount columns and keeps ModelFeatures.
func PrepareTraining(f *frame.Frame, threshold float64) (*TrainingSet, error) {
	if f.Len() == 0 {
		return nil, apperrors.DataUnavailable("churn training data is empty")
	}
	if err := requireColumns(f, append(append([]string{}, ModelFeatures...), RoundColumns...)); err != nil {
		return nil, err
	}

	suppressed, strata, err := outlier.SuppressStrata(f, ColProgram, ColTarget, threshold, identityColumns)
	if err != nil {
		return nil, err
	}
	if suppressed.Len() == 0 {
		return nil, apperrors.DataUnavailable("churn training data has no rows with a 0/1 target")
	}
	rounded, err := roundColumns(suppressed)
	if err != nil {
		return nil, err
	}
	features, err := selectFeatures(rounded, inputFeatures())
	if err != nil {
		return nil, err
	}
	target, _ := rounded.Floats(ColTarget)
	return &TrainingSet{Features: features, Target: append([]float64(nil), target...), Strata: strata}, nil
}

// PrepareScoring rounds the batch and splits it into model inputs and
// customer info. A target column, if present, is ignored.
func PrepareScoring(f *frame.Frame) (*ScoringSet, error) {
	if f.Len() == 0 {
		return nil, apperrors.DataUnavailable("churn scoring data is empty")
	}
	if err := requireColumns(f, append(append(append([]string{}, inputFeatures()...), RoundColumns...), CustomerInfoColumns...)); err != nil {
		return nil, err
	}
	rounded, err := roundColumns(f)
	if err != nil {
		return nil, err
	}
	features, err := selectFeatures(rounded, inputFeatures())
	if err != nil {
		return nil, err
	}
	info, err := rounded.Select(CustomerInfoColumns...)
	if err != nil {
		return nil, err
	}
	return &ScoringSet{Features: features, Info: info.Clone()}, nil
}

func requireColumns(f *frame.Frame, names []string) error {
	for _, n := range names {
		if !f.Has(n) {
			return apperrors.SchemaMismatch("churn input is missing column %s", n)
		}
	}
	return nil
}

// roundColumns returns a copy with RoundColumns zero-filled and rounded half
// to even.
func roundColumns(f *frame.Frame) (*frame.Frame, error) {
	out := f.Clone()
	for _, name := range RoundColumns {
		v, err := out.Floats(name)
		if err != nil {
			return nil, err
		}
		for i, x := range v {
			if math.IsNaN(x) {
				x = 0
			}
			v[i] = numeric.RoundHalfEven(x)
		}
	}
	return out, nil
}

func selectFeatures(f *frame.Frame, names []string) (*frame.Frame, error) {
	sel, err := f.Select(names...)
	if err != nil {
		return nil, err
	}
	out := sel.Clone()
	for _, name := range CategoricalFeatures {
		c, _ := out.Column(name)
		cat, err := frame.AsCategory(c)
		if err != nil {
			return nil, err
		}
		if err := out.Set(cat); err != nil {
			return nil, err
		}
	}
	for _, c := range out.Columns() {
		if c.Kind != frame.Float && c.Kind != frame.Category {
			return nil, apperrors.SchemaMismatch("feature %s is %s, want numeric", c.Name, c.Kind)
		}
	}
	return out, nil
}
