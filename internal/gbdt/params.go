// Package gbdt trains and evaluates gradient-boosted decision trees for binary
// classification with a logistic loss.
package gbdt

import "fmt"

// Params controls tree growth and boosting. Zero values are not defaults;
// start from DefaultParams.
type Params struct {
	LearningRate    float64 `json:"learning_rate" mapstructure:"learning_rate"`
	NumLeaves       int     `json:"num_leaves" mapstructure:"num_leaves"`
	MaxDepth        int     `json:"max_depth" mapstructure:"max_depth"` // <= 0 means unlimited
	LambdaL1        float64 `json:"lambda_l1" mapstructure:"lambda_l1"`
	LambdaL2        float64 `json:"lambda_l2" mapstructure:"lambda_l2"`
	FeatureFraction float64 `json:"feature_fraction" mapstructure:"feature_fraction"`
	BaggingFraction float64 `json:"bagging_fraction" mapstructure:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq" mapstructure:"bagging_freq"`
	MinDataInLeaf   int     `json:"min_data_in_leaf" mapstructure:"min_data_in_leaf"`
	MinSumHessian   float64 `json:"min_sum_hessian_in_leaf" mapstructure:"min_sum_hessian_in_leaf"`
	MaxBin          int     `json:"max_bin" mapstructure:"max_bin"`
	MaxCatThreshold int     `json:"max_cat_threshold" mapstructure:"max_cat_threshold"`
	CatSmooth       float64 `json:"cat_smooth" mapstructure:"cat_smooth"`
	NumRounds       int     `json:"num_boost_round" mapstructure:"num_boost_round"`
	EarlyStopping   int     `json:"early_stopping_rounds" mapstructure:"early_stopping_rounds"`
	Balanced        bool    `json:"balanced" mapstructure:"balanced"`
	Seed            uint64  `json:"seed" mapstructure:"seed"`
}

func DefaultParams() Params {
	return Params{
		LearningRate:    0.05,
		NumLeaves:       31,
		MaxDepth:        -1,
		LambdaL1:        0.1,
		LambdaL2:        0.1,
		FeatureFraction: 0.9,
		BaggingFraction: 0.8,
		BaggingFreq:     5,
		MinDataInLeaf:   20,
		MinSumHessian:   1e-3,
		MaxBin:          255,
		MaxCatThreshold: 32,
		CatSmooth:       10,
		NumRounds:       1000,
		EarlyStopping:   50,
		Balanced:        true,
		Seed:            42,
	}
}

func (p Params) validate() error {
	switch {
	case p.LearningRate <= 0:
		return fmt.Errorf("gbdt: learning_rate must be positive")
	case p.NumLeaves < 2:
		return fmt.Errorf("gbdt: num_leaves must be at least 2")
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return fmt.Errorf("gbdt: feature_fraction must be in (0,1]")
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return fmt.Errorf("gbdt: bagging_fraction must be in (0,1]")
	case p.MaxBin < 2 || p.MaxBin > 65534:
		return fmt.Errorf("gbdt: max_bin must be in [2,65534]")
	case p.NumRounds < 1:
		return fmt.Errorf("gbdt: num_boost_round must be positive")
	case p.LambdaL1 < 0 || p.LambdaL2 < 0:
		return fmt.Errorf("gbdt: regularization must not be negative")
	}
	return nil
}
