package churn

import (
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
)

// ValidationThreshold is the decision threshold of the validation report.
// Scoring uses ScoreThreshold; the two differ on purpose until the owners
// agree to unify them.
const ValidationThreshold = 0.5

// Trainer fits the churn model for one schema.
type Trainer struct {
	Params         gbdt.Params
	ValidationSize float64
	SplitSeed      uint64
}

func NewTrainer(p gbdt.Params) *Trainer {
	return &Trainer{Params: p, ValidationSize: 0.2, SplitSeed: 42}
}

// TrainResult is the trained artifact plus its audit facts.
type TrainResult struct {
	Artifact   *Artifact
	Evaluation gbdt.Evaluation
	Importance []gbdt.Importance
	TrainRows  int
	ValidRows  int
	Rounds     int
}

// Train splits set, fits the model with early stopping on validation AUC and
// reports validation metrics at ValidationThreshold. Nothing is persisted.
func (t *Trainer) Train(set *TrainingSet, key string, runID int64, version string, now time.Time) (*TrainResult, error) {
	pos := set.Positives()
	if pos == 0 || pos == len(set.Target) {
		return nil, apperrors.DataUnavailable("churn training for %s needs both classes, got %d of %d churned", key, pos, len(set.Target))
	}

	a := &Artifact{
		Key:       key,
		Version:   version,
		RunID:     runID,
		TrainedAt: now.UTC(),
		Features:  set.Features.Names(),
		Levels:    map[string][]string{},
		Params:    t.Params,
	}
	features := make([]gbdt.Feature, len(a.Features))
	for j, name := range a.Features {
		c, _ := set.Features.Column(name)
		features[j] = gbdt.Feature{Name: name}
		if c.Kind == frame.Category {
			a.Categorical = append(a.Categorical, name)
			a.Levels[name] = append([]string(nil), c.Levels...)
			features[j].Categorical = true
			features[j].Levels = len(c.Levels)
		}
	}
	a.Model = &gbdt.Model{Features: features}

	trainIdx, validIdx := StratifiedSplit(set.Target, t.ValidationSize, t.SplitSeed)
	if vp := countOnes(set.Target, validIdx); vp == 0 || vp == len(validIdx) || vp == pos {
		return nil, apperrors.DataUnavailable("churn training for %s: %d churned customers are too few to validate", key, pos)
	}
	train, err := a.dataset(set.Features.Take(trainIdx), pick(set.Target, trainIdx))
	if err != nil {
		return nil, err
	}
	valid, err := a.dataset(set.Features.Take(validIdx), pick(set.Target, validIdx))
	if err != nil {
		return nil, err
	}

	res, err := gbdt.Train(train, valid, t.Params)
	if err != nil {
		return nil, apperrors.Wrapf(err, "train churn model for %s", key)
	}
	a.Model = res.Model

	prob := a.Model.PredictDataset(valid)
	a.Validation = gbdt.Evaluate(valid.Label, prob, ValidationThreshold)

	return &TrainResult{
		Artifact:   a,
		Evaluation: a.Validation,
		Importance: a.Model.Importance(),
		TrainRows:  len(trainIdx),
		ValidRows:  len(validIdx),
		Rounds:     len(res.ValidAUC),
	}, nil
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = v[i]
	}
	return out
}

func countOnes(v []float64, idx []int) int {
	n := 0
	for _, i := range idx {
		if v[i] == 1 {
			n++
		}
	}
	return n
}
