package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/teranos/exopredict/errors"
)

func ints(ids ...int64) []Class {
	out := make([]Class, len(ids))
	for i, id := range ids {
		out[i] = IntClass(id)
	}
	return out
}

// stumpNodes splits feature 0 at 0.5: left leaf 3:1, right leaf 0:4.
func stumpNodes() TreeNodes {
	return TreeNodes{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         [][]float64{{3, 5}, {3, 1}, {0, 4}},
	}
}

func TestLogisticRegressionBinary(t *testing.T) {
	m, err := NewLogisticRegression(ints(0, 1), [][]float64{{1, -1}}, []float64{0})
	require.NoError(t, err)

	X := mat.NewDense(2, 2, []float64{
		2, 2, // z = 0
		3, 1, // z = 2
	})
	proba, err := m.PredictProba(X)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, proba.At(0, 1), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2)), proba.At(1, 1), 1e-12)
	assert.InDelta(t, 1.0, proba.At(1, 0)+proba.At(1, 1), 1e-12)

	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, ints(0, 1), pred, "ties resolve to the first class")
}

func TestLogisticRegressionMultinomial(t *testing.T) {
	m, err := NewLogisticRegression(ints(0, 1, 2),
		[][]float64{{1, 0}, {0, 1}, {0, 0}},
		[]float64{0, 0, 0})
	require.NoError(t, err)

	X := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.RowView(i)), 1e-12)
	}

	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, ints(0, 1), pred)
}

func TestLinearModelValidation(t *testing.T) {
	tests := []struct {
		name      string
		classes   []Class
		coef      [][]float64
		intercept []float64
	}{
		{"single class", ints(0), [][]float64{{1}}, []float64{0}},
		{"no coefficients", ints(0, 1), nil, nil},
		{"row count", ints(0, 1, 2), [][]float64{{1}, {1}}, []float64{0, 0}},
		{"intercept count", ints(0, 1), [][]float64{{1}}, []float64{0, 0}},
		{"ragged", ints(0, 1, 2), [][]float64{{1, 2}, {1}, {1, 2}}, []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogisticRegression(tt.classes, tt.coef, tt.intercept)
			assert.Error(t, err)
		})
	}
}

func TestLinearSVC(t *testing.T) {
	m, err := NewLinearSVC(ints(0, 1), [][]float64{{1}}, []float64{-1})
	require.NoError(t, err)

	_, probabilistic := any(m).(ProbabilisticClassifier)
	assert.False(t, probabilistic)

	pred, err := m.Predict(mat.NewDense(2, 1, []float64{0.5, 2}))
	require.NoError(t, err)
	assert.Equal(t, ints(0, 1), pred)
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	m, err := NewLogisticRegression(ints(0, 1), [][]float64{{1, -1}}, []float64{0})
	require.NoError(t, err)

	_, err = m.Predict(mat.NewDense(1, 3, nil))
	require.Error(t, err)
	assert.True(t, errors.IsArtifactMismatch(err))
}

func TestDecisionTree(t *testing.T) {
	tree, err := NewDecisionTree(ints(0, 1), 1, stumpNodes())
	require.NoError(t, err)

	X := mat.NewDense(3, 1, []float64{0.2, 0.9, math.NaN()})
	proba, err := tree.PredictProba(X)
	require.NoError(t, err)

	want := mat.NewDense(3, 2, []float64{
		0.75, 0.25,
		0, 1,
		0, 1, // NaN goes right
	})
	assert.True(t, mat.EqualApprox(want, proba, 1e-12))

	pred, err := tree.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, ints(0, 1, 1), pred)
}

func TestDecisionTreeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TreeNodes)
	}{
		{"child before parent", func(n *TreeNodes) { n.ChildrenLeft[0] = 0 }},
		{"child out of range", func(n *TreeNodes) { n.ChildrenRight[0] = 7 }},
		{"one child", func(n *TreeNodes) { n.ChildrenRight[0] = -1 }},
		{"feature out of range", func(n *TreeNodes) { n.Feature[0] = 3 }},
		{"leaf width", func(n *TreeNodes) { n.Value[1] = []float64{1} }},
		{"empty leaf", func(n *TreeNodes) { n.Value[2] = []float64{0, 0} }},
		{"short arrays", func(n *TreeNodes) { n.Threshold = n.Threshold[:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := stumpNodes()
			tt.mutate(&nodes)
			_, err := NewDecisionTree(ints(0, 1), 1, nodes)
			assert.Error(t, err)
		})
	}
}

func TestRandomForestAveragesTrees(t *testing.T) {
	stump, err := NewDecisionTree(ints(0, 1), 1, stumpNodes())
	require.NoError(t, err)
	flat, err := NewDecisionTree(ints(0, 1), 1, TreeNodes{
		ChildrenLeft:  []int{-1},
		ChildrenRight: []int{-1},
		Feature:       []int{-2},
		Threshold:     []float64{-2},
		Value:         [][]float64{{1, 1}},
	})
	require.NoError(t, err)

	forest, err := NewRandomForest(ints(0, 1), 1, []*DecisionTree{stump, flat})
	require.NoError(t, err)

	proba, err := forest.PredictProba(mat.NewDense(1, 1, []float64{0.9}))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 0.75, proba.At(0, 1), 1e-12)

	_, err = NewRandomForest(ints(0, 1), 2, []*DecisionTree{stump})
	assert.Error(t, err, "tree width must match the forest")
}

func TestClassDecoding(t *testing.T) {
	var fromJSON []Class
	require.NoError(t, json.Unmarshal([]byte(`[0, 2.0, 2.5, "CONFIRMED"]`), &fromJSON))

	var fromYAML []Class
	require.NoError(t, yaml.Unmarshal([]byte(`[0, 2.0, 2.5, CONFIRMED, "1"]`), &fromYAML))

	want := []any{int64(0), int64(2), 2.5, "CONFIRMED"}
	for i, w := range want {
		assert.Equal(t, w, fromJSON[i].Value(), "json class %d", i)
		assert.Equal(t, w, fromYAML[i].Value(), "yaml class %d", i)
	}
	assert.Equal(t, "1", fromYAML[4].Value(), "quoted scalars stay strings")

	id, ok := fromJSON[1].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, "2.5", fromJSON[2].String())

	var bad Class
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestDecodeJSONAndYAMLAgree(t *testing.T) {
	jsonDoc := `{
		"kind": "decision_tree",
		"n_features": 1,
		"classes": [0, 1],
		"tree": {
			"children_left": [1, -1, -1],
			"children_right": [2, -1, -1],
			"feature": [0, -2, -2],
			"threshold": [0.5, -2, -2],
			"value": [[3, 5], [3, 1], [0, 4]]
		}
	}`
	yamlDoc := `
kind: decision_tree
n_features: 1
classes: [0, 1]
tree:
  children_left: [1, -1, -1]
  children_right: [2, -1, -1]
  feature: [0, -2, -2]
  threshold: [0.5, -2, -2]
  value:
    - [3, 5]
    - [3, 1]
    - [0, 4]
`
	fromJSON, err := DecodeJSON([]byte(jsonDoc))
	require.NoError(t, err)
	fromYAML, err := DecodeYAML([]byte(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, KindDecisionTree, fromJSON.Kind())
	if diff := cmp.Diff(fromJSON, fromYAML, cmp.AllowUnexported(DecisionTree{}, Class{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("json and yaml decoders disagree (-json +yaml):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown kind", `{"kind": "gradient_boosting", "classes": [0, 1]}`},
		{"tree missing", `{"kind": "decision_tree", "n_features": 1, "classes": [0, 1]}`},
		{"forest without trees", `{"kind": "random_forest", "n_features": 1, "classes": [0, 1]}`},
		{"width disagrees", `{"kind": "logistic_regression", "n_features": 3, "classes": [0, 1], "coef": [[1, 2]], "intercept": [0]}`},
		{"not json", `kind: logistic_regression`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestUnknownKindHintsSupportedKinds(t *testing.T) {
	_, err := Build(&Document{Kind: "svm_rbf"})
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), KindRandomForest)
}

func TestDecodedLogisticIsProbabilistic(t *testing.T) {
	c, err := DecodeJSON([]byte(`{"kind": "logistic_regression", "classes": [0, 1], "coef": [[1]], "intercept": [0]}`))
	require.NoError(t, err)
	_, ok := c.(ProbabilisticClassifier)
	assert.True(t, ok)
	assert.Equal(t, 1, c.NumFeatures())

	c, err = DecodeYAML([]byte("kind: linear_svc\nclasses: [0, 1]\ncoef: [[1]]\nintercept: [0]\n"))
	require.NoError(t, err)
	_, ok = c.(ProbabilisticClassifier)
	assert.False(t, ok)
}
