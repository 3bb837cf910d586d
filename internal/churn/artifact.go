package churn

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
)

// Artifact is everything needed to score with a trained model.
type Artifact struct {
	Key         string              `json:"key"`
	Version     string              `json:"version"`
	RunID       int64               `json:"run_id"`
	TrainedAt   time.Time           `json:"trained_at"`
	Features    []string            `json:"features"`
	Categorical []string            `json:"categorical"`
	Levels      map[string][]string `json:"levels"`
	Params      gbdt.Params         `json:"params"`
	Validation  gbdt.Evaluation     `json:"validation"`
	Model       *gbdt.Model         `json:"model"`
}

// Store persists encoded artifacts by key. Load of an unknown key fails with
// apperrors.ErrModelNotFound.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// Validate checks that the artifact can score.
func (a *Artifact) Validate() error {
	if a.Model == nil {
		return fmt.Errorf("churn artifact %q has no model", a.Key)
	}
	if err := a.Model.Validate(); err != nil {
		return err
	}
	if len(a.Features) != len(a.Model.Features) {
		return fmt.Errorf("churn artifact %q lists %d features, model has %d", a.Key, len(a.Features), len(a.Model.Features))
	}
	for _, c := range a.Categorical {
		if _, ok := a.Levels[c]; !ok {
			return fmt.Errorf("churn artifact %q has no levels for %s", a.Key, c)
		}
	}
	return nil
}

func (a *Artifact) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalArtifact decodes and validates an artifact.
func UnmarshalArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode churn artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ValidateEncoded is the store-side check run before an artifact replaces
// the previous one.
func ValidateEncoded(data []byte) error {
	_, err := UnmarshalArtifact(data)
	return err
}

// Save encodes a and writes it under a.Key.
func Save(ctx context.Context, store Store, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return apperrors.Wrap(err, "refusing to store invalid churn model")
	}
	data, err := a.Marshal()
	if err != nil {
		return err
	}
	if err := store.Save(ctx, a.Key, data); err != nil {
		return fmt.Errorf("save churn model %s: %w", a.Key, err)
	}
	return nil
}

// Load reads the artifact stored under key.
func Load(ctx context.Context, store Store, key string) (*Artifact, error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	a, err := UnmarshalArtifact(data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "load churn model %s", key)
	}
	return a, nil
}

// dataset converts features into model space. Categorical columns are
// re-coded against the artifact's levels; a level the model has not seen is
// a schema mismatch rather than a silent missing value.
func (a *Artifact) dataset(features *frame.Frame, target []float64) (*gbdt.Dataset, error) {
	d := &gbdt.Dataset{Features: a.Model.Features, Columns: make([][]float64, len(a.Features)), Label: target}
	if d.Label == nil {
		d.Label = make([]float64, features.Len())
	}
	for j, name := range a.Features {
		c, err := features.Column(name)
		if err != nil {
			return nil, err
		}
		levels, categorical := a.Levels[name]
		switch {
		case categorical:
			if c.Kind != frame.Category {
				return nil, apperrors.SchemaMismatch("feature %s must be categorical, got %s", name, c.Kind)
			}
			col, err := recode(c, levels)
			if err != nil {
				return nil, err
			}
			d.Columns[j] = col
		case c.Kind == frame.Float:
			d.Columns[j] = c.Floats
		default:
			return nil, apperrors.SchemaMismatch("feature %s must be numeric, got %s", name, c.Kind)
		}
	}
	return d, nil
}

func recode(c *frame.Column, levels []string) ([]float64, error) {
	pos := make(map[string]float64, len(levels))
	for i, l := range levels {
		pos[l] = float64(i)
	}
	out := make([]float64, c.Len())
	for i := range out {
		if c.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		code, ok := pos[c.Level(i)]
		if !ok {
			return nil, apperrors.SchemaMismatch("feature %s has level %q unknown to the model", c.Name, c.Level(i))
		}
		out[i] = code
	}
	return out, nil
}
