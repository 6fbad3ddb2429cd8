package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/errors"
)

// linearModel holds the shared coefficient layout of the linear families:
// one coefficient row per class, or a single row for binary problems.
type linearModel struct {
	classes   []Class
	coef      *mat.Dense // k×p
	intercept []float64  // k
}

func newLinearModel(kind string, classes []Class, coef [][]float64, intercept []float64) (linearModel, error) {
	if len(classes) < 2 {
		return linearModel{}, errors.Newf("%s needs at least 2 classes, got %d", kind, len(classes))
	}
	if len(coef) == 0 || len(coef[0]) == 0 {
		return linearModel{}, errors.Newf("%s has no coefficients", kind)
	}

	k, p := len(coef), len(coef[0])
	binary := len(classes) == 2 && k == 1
	if !binary && k != len(classes) {
		return linearModel{}, errors.Newf("%s has %d coefficient rows for %d classes", kind, k, len(classes))
	}
	if len(intercept) != k {
		return linearModel{}, errors.Newf("%s has %d intercepts for %d coefficient rows", kind, len(intercept), k)
	}

	data := make([]float64, 0, k*p)
	for i, row := range coef {
		if len(row) != p {
			return linearModel{}, errors.Newf("%s coefficient row %d has %d values, want %d", kind, i, len(row), p)
		}
		data = append(data, row...)
	}

	return linearModel{
		classes:   classes,
		coef:      mat.NewDense(k, p, data),
		intercept: append([]float64(nil), intercept...),
	}, nil
}

func (m linearModel) binary() bool {
	r, _ := m.coef.Dims()
	return r == 1
}

func (m linearModel) numFeatures() int {
	_, p := m.coef.Dims()
	return p
}

// decision computes X·Wᵀ + b, an n×k matrix of raw scores.
func (m linearModel) decision(kind string, X mat.Matrix) (*mat.Dense, error) {
	if _, err := checkWidth(kind, X, m.numFeatures()); err != nil {
		return nil, err
	}
	var scores mat.Dense
	scores.Mul(X, m.coef.T())
	scores.Apply(func(_, j int, v float64) float64 { return v + m.intercept[j] }, &scores)
	return &scores, nil
}

// LogisticRegression is a fitted binary (sigmoid) or multinomial (softmax)
// logistic model.
type LogisticRegression struct {
	linearModel
}

// NewLogisticRegression validates and builds a logistic model.
func NewLogisticRegression(classes []Class, coef [][]float64, intercept []float64) (*LogisticRegression, error) {
	lm, err := newLinearModel(KindLogisticRegression, classes, coef, intercept)
	if err != nil {
		return nil, err
	}
	return &LogisticRegression{linearModel: lm}, nil
}

func (m *LogisticRegression) Kind() string     { return KindLogisticRegression }
func (m *LogisticRegression) Classes() []Class { return m.classes }
func (m *LogisticRegression) NumFeatures() int { return m.numFeatures() }

func (m *LogisticRegression) Predict(X mat.Matrix) ([]Class, error) {
	return predictFromProba(m, X)
}

func (m *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	scores, err := m.decision(KindLogisticRegression, X)
	if err != nil {
		return nil, err
	}

	rows, _ := scores.Dims()
	proba := mat.NewDense(rows, len(m.classes), nil)
	for i := 0; i < rows; i++ {
		if m.binary() {
			p1 := sigmoid(scores.At(i, 0))
			proba.Set(i, 0, 1-p1)
			proba.Set(i, 1, p1)
			continue
		}
		softmaxInto(proba.RawRowView(i), scores.RawRowView(i))
	}
	return proba, nil
}

// LinearSVC is a fitted linear support vector classifier. It has a decision
// function but no calibrated probabilities.
type LinearSVC struct {
	linearModel
}

// NewLinearSVC validates and builds a linear SVC.
func NewLinearSVC(classes []Class, coef [][]float64, intercept []float64) (*LinearSVC, error) {
	lm, err := newLinearModel(KindLinearSVC, classes, coef, intercept)
	if err != nil {
		return nil, err
	}
	return &LinearSVC{linearModel: lm}, nil
}

func (m *LinearSVC) Kind() string     { return KindLinearSVC }
func (m *LinearSVC) Classes() []Class { return m.classes }
func (m *LinearSVC) NumFeatures() int { return m.numFeatures() }

func (m *LinearSVC) Predict(X mat.Matrix) ([]Class, error) {
	scores, err := m.decision(KindLinearSVC, X)
	if err != nil {
		return nil, err
	}
	if !m.binary() {
		return argmaxClasses(scores, m.classes), nil
	}

	rows, _ := scores.Dims()
	out := make([]Class, rows)
	for i := range out {
		if scores.At(i, 0) > 0 {
			out[i] = m.classes[1]
		} else {
			out[i] = m.classes[0]
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softmaxInto writes softmax(scores) into dst, shifted by the max for stability.
func softmaxInto(dst, scores []float64) {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}
	var sum float64
	for j, s := range scores {
		dst[j] = math.Exp(s - maxScore)
		sum += dst[j]
	}
	for j := range dst {
		dst[j] /= sum
	}
}
