package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/errors"
)

// leaf marks a node without children in the flat tree arrays.
const leaf = -1

// TreeNodes is the flat array encoding of a fitted binary tree: node i
// splits on Feature[i] at Threshold[i] and sends rows with x <= threshold
// left. Value[i] holds the per-class weights of the training samples that
// reached the node.
type TreeNodes struct {
	ChildrenLeft  []int       `json:"children_left" yaml:"children_left"`
	ChildrenRight []int       `json:"children_right" yaml:"children_right"`
	Feature       []int       `json:"feature" yaml:"feature"`
	Threshold     []float64   `json:"threshold" yaml:"threshold"`
	Value         [][]float64 `json:"value" yaml:"value"`
}

// DecisionTree is a fitted classification tree.
type DecisionTree struct {
	classes   []Class
	nFeatures int
	nodes     TreeNodes
	leafProba [][]float64
}

// NewDecisionTree validates the node arrays and precomputes leaf probabilities.
func NewDecisionTree(classes []Class, nFeatures int, nodes TreeNodes) (*DecisionTree, error) {
	if len(classes) < 2 {
		return nil, errors.Newf("decision tree needs at least 2 classes, got %d", len(classes))
	}
	if nFeatures <= 0 {
		return nil, errors.Newf("decision tree needs a positive feature count, got %d", nFeatures)
	}

	n := len(nodes.ChildrenLeft)
	if n == 0 {
		return nil, errors.New("decision tree has no nodes")
	}
	if len(nodes.ChildrenRight) != n || len(nodes.Feature) != n || len(nodes.Threshold) != n || len(nodes.Value) != n {
		return nil, errors.Newf("decision tree node arrays disagree on length (%d nodes)", n)
	}

	leafProba := make([][]float64, n)
	for i := 0; i < n; i++ {
		left, right := nodes.ChildrenLeft[i], nodes.ChildrenRight[i]
		if (left == leaf) != (right == leaf) {
			return nil, errors.Newf("decision tree node %d has only one child", i)
		}
		if left != leaf {
			// Children always come after their parent, so traversal terminates.
			if left <= i || left >= n || right <= i || right >= n {
				return nil, errors.Newf("decision tree node %d has out-of-range children %d/%d", i, left, right)
			}
			if f := nodes.Feature[i]; f < 0 || f >= nFeatures {
				return nil, errors.Newf("decision tree node %d splits on feature %d of %d", i, f, nFeatures)
			}
			continue
		}

		weights := nodes.Value[i]
		if len(weights) != len(classes) {
			return nil, errors.Newf("decision tree leaf %d has %d class weights, want %d", i, len(weights), len(classes))
		}
		total := floats.Sum(weights)
		if total <= 0 {
			return nil, errors.Newf("decision tree leaf %d has no weight", i)
		}
		proba := make([]float64, len(weights))
		floats.ScaleTo(proba, 1/total, weights)
		leafProba[i] = proba
	}

	return &DecisionTree{
		classes:   classes,
		nFeatures: nFeatures,
		nodes:     nodes,
		leafProba: leafProba,
	}, nil
}

func (t *DecisionTree) Kind() string     { return KindDecisionTree }
func (t *DecisionTree) Classes() []Class { return t.classes }
func (t *DecisionTree) NumFeatures() int { return t.nFeatures }

func (t *DecisionTree) Predict(X mat.Matrix) ([]Class, error) {
	return predictFromProba(t, X)
}

func (t *DecisionTree) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	rows, err := checkWidth(KindDecisionTree, X, t.nFeatures)
	if err != nil {
		return nil, err
	}
	proba := mat.NewDense(rows, len(t.classes), nil)
	row := make([]float64, t.nFeatures)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		proba.SetRow(i, t.leafProba[t.leafFor(row)])
	}
	return proba, nil
}

// leafFor walks x down to its leaf. NaN compares false and goes right.
func (t *DecisionTree) leafFor(x []float64) int {
	node := 0
	for t.nodes.ChildrenLeft[node] != leaf {
		if x[t.nodes.Feature[node]] <= t.nodes.Threshold[node] {
			node = t.nodes.ChildrenLeft[node]
		} else {
			node = t.nodes.ChildrenRight[node]
		}
	}
	return node
}

// RandomForest averages the probabilities of its trees.
type RandomForest struct {
	classes   []Class
	nFeatures int
	trees     []*DecisionTree
}

// NewRandomForest builds a forest from already validated trees.
func NewRandomForest(classes []Class, nFeatures int, trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("random forest has no trees")
	}
	for i, tree := range trees {
		if tree.nFeatures != nFeatures || len(tree.classes) != len(classes) {
			return nil, errors.Newf("random forest tree %d does not match the forest shape", i)
		}
	}
	return &RandomForest{classes: classes, nFeatures: nFeatures, trees: trees}, nil
}

func (f *RandomForest) Kind() string     { return KindRandomForest }
func (f *RandomForest) Classes() []Class { return f.classes }
func (f *RandomForest) NumFeatures() int { return f.nFeatures }

func (f *RandomForest) Predict(X mat.Matrix) ([]Class, error) {
	return predictFromProba(f, X)
}

func (f *RandomForest) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	rows, err := checkWidth(KindRandomForest, X, f.nFeatures)
	if err != nil {
		return nil, err
	}
	sum := mat.NewDense(rows, len(f.classes), nil)
	for _, tree := range f.trees {
		proba, err := tree.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, proba)
	}
	sum.Scale(1/float64(len(f.trees)), sum)
	return sum, nil
}
