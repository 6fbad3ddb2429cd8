package model

import (
	"encoding/json"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/errors"
)

// Imputation strategies a fitted imputer may record. The strategy only
// describes how Statistics were fitted; Transform fills the same way for all.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

var strategies = []string{StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant}

// Imputer is a fitted column-wise transform that fills nulls (NaN). It
// returns a matrix of the same shape as its input.
type Imputer interface {
	NumFeatures() int
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// SimpleImputer replaces nulls (NaN) column by column with a fitted statistic.
type SimpleImputer struct {
	Strategy     string    `json:"strategy"`
	Statistics   []float64 `json:"statistics"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	FillValue    *float64  `json:"fill_value,omitempty"`
}

// DecodeImputer parses an imputer document.
func DecodeImputer(data []byte) (*SimpleImputer, error) {
	var im SimpleImputer
	if err := json.Unmarshal(data, &im); err != nil {
		return nil, errors.Wrap(err, "decode imputer")
	}
	if err := im.validate(); err != nil {
		return nil, err
	}
	return &im, nil
}

func (im *SimpleImputer) validate() error {
	if im.Strategy == "" {
		im.Strategy = StrategyMean
	}
	if !slices.Contains(strategies, im.Strategy) {
		return errors.Newf("unknown imputer strategy %q", im.Strategy)
	}

	// A constant imputer may record only its fill value.
	if len(im.Statistics) == 0 && im.Strategy == StrategyConstant && im.FillValue != nil && len(im.FeatureNames) > 0 {
		im.Statistics = make([]float64, len(im.FeatureNames))
		for i := range im.Statistics {
			im.Statistics[i] = *im.FillValue
		}
	}

	if len(im.Statistics) == 0 {
		return errors.New("imputer has no statistics")
	}
	if len(im.FeatureNames) > 0 && len(im.FeatureNames) != len(im.Statistics) {
		return errors.Newf("imputer has %d feature names for %d statistics", len(im.FeatureNames), len(im.Statistics))
	}
	for i, s := range im.Statistics {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return errors.Newf("imputer statistic %d is not finite", i)
		}
	}
	return nil
}

// NumFeatures is the number of columns the imputer was fitted on.
func (im *SimpleImputer) NumFeatures() int { return len(im.Statistics) }

// Features returns the fitted column names, or nil when none were recorded.
func (im *SimpleImputer) Features() []string { return im.FeatureNames }

// Transform returns a copy of X with every NaN replaced by its column's
// statistic. X must have exactly NumFeatures columns.
func (im *SimpleImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	_, cols := X.Dims()
	if cols != len(im.Statistics) {
		return nil, errors.Mismatchf("imputer expects %d columns, got %d", len(im.Statistics), cols)
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		if math.IsNaN(v) {
			return im.Statistics[j]
		}
		return v
	}, out)
	return out, nil
}
