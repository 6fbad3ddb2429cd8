// Package model implements the fitted estimators exopredict serves: the
// imputer and the classifier families an artifact may carry.
//
// Estimators are immutable after decoding. Every method is safe for
// concurrent use.
package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/errors"
)

// Classifier kinds accepted in artifact documents.
const (
	KindLogisticRegression = "logistic_regression"
	KindLinearSVC          = "linear_svc"
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
)

// Classifier maps feature rows to classes.
type Classifier interface {
	// Kind names the estimator family, e.g. "random_forest".
	Kind() string
	// Classes lists the classifier's internal class ids in column order of
	// its probability output.
	Classes() []Class
	// NumFeatures is the width of the rows the classifier was fitted on.
	NumFeatures() int
	// Predict returns one class per row of X.
	Predict(X mat.Matrix) ([]Class, error)
}

// ProbabilisticClassifier is a Classifier that can also report class
// probabilities. Whether a loaded classifier has this capability is decided
// once, at load time.
type ProbabilisticClassifier interface {
	Classifier
	// PredictProba returns an n×len(Classes()) matrix whose rows sum to 1.
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// checkWidth rejects matrices whose column count differs from the fitted width.
func checkWidth(kind string, X mat.Matrix, want int) (rows int, err error) {
	r, c := X.Dims()
	if c != want {
		return 0, errors.Mismatchf("%s expects %d features, got %d", kind, want, c)
	}
	return r, nil
}

// argmaxClasses picks the highest-scoring class of every row.
func argmaxClasses(scores *mat.Dense, classes []Class) []Class {
	rows, _ := scores.Dims()
	out := make([]Class, rows)
	for i := 0; i < rows; i++ {
		out[i] = classes[floats.MaxIdx(scores.RawRowView(i))]
	}
	return out
}

// predictFromProba is the Predict of every probabilistic family.
func predictFromProba(c ProbabilisticClassifier, X mat.Matrix) ([]Class, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxClasses(proba, c.Classes()), nil
}
