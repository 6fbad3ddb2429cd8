package model

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/teranos/exopredict/errors"
)

// Document is the portable serialized form of a fitted classifier. Which
// fields apply depends on Kind.
type Document struct {
	Kind      string      `json:"kind" yaml:"kind"`
	NFeatures int         `json:"n_features" yaml:"n_features"`
	Classes   []Class     `json:"classes" yaml:"classes"`
	Coef      [][]float64 `json:"coef,omitempty" yaml:"coef,omitempty"`
	Intercept []float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Tree      *TreeNodes  `json:"tree,omitempty" yaml:"tree,omitempty"`
	Trees     []TreeNodes `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// Builder turns a decoded document into a classifier.
type Builder func(doc *Document) (Classifier, error)

// Builders maps each classifier kind to its builder.
var Builders = map[string]Builder{
	KindLogisticRegression: func(doc *Document) (Classifier, error) {
		m, err := NewLogisticRegression(doc.Classes, doc.Coef, doc.Intercept)
		if err != nil {
			return nil, err
		}
		return m, checkDeclaredWidth(doc, m.NumFeatures())
	},
	KindLinearSVC: func(doc *Document) (Classifier, error) {
		m, err := NewLinearSVC(doc.Classes, doc.Coef, doc.Intercept)
		if err != nil {
			return nil, err
		}
		return m, checkDeclaredWidth(doc, m.NumFeatures())
	},
	KindDecisionTree: func(doc *Document) (Classifier, error) {
		if doc.Tree == nil {
			return nil, errors.New("decision_tree document has no tree")
		}
		return NewDecisionTree(doc.Classes, doc.NFeatures, *doc.Tree)
	},
	KindRandomForest: func(doc *Document) (Classifier, error) {
		trees := make([]*DecisionTree, len(doc.Trees))
		for i, nodes := range doc.Trees {
			tree, err := NewDecisionTree(doc.Classes, doc.NFeatures, nodes)
			if err != nil {
				return nil, errors.Wrapf(err, "tree %d", i)
			}
			trees[i] = tree
		}
		return NewRandomForest(doc.Classes, doc.NFeatures, trees)
	},
}

// Kinds lists the registered classifier kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(Builders))
	for k := range Builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build dispatches doc to the builder registered for its kind.
func Build(doc *Document) (Classifier, error) {
	build, ok := Builders[doc.Kind]
	if !ok {
		return nil, errors.WithHintf(
			errors.Newf("unknown classifier kind %q", doc.Kind),
			"supported kinds: %v", Kinds())
	}
	c, err := build(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", doc.Kind)
	}
	return c, nil
}

// DecodeJSON decodes a JSON classifier document.
func DecodeJSON(data []byte) (Classifier, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode classifier json")
	}
	return Build(&doc)
}

// DecodeYAML decodes a YAML classifier document.
func DecodeYAML(data []byte) (Classifier, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode classifier yaml")
	}
	return Build(&doc)
}

// checkDeclaredWidth verifies n_features against the coefficient width when
// the document declares it.
func checkDeclaredWidth(doc *Document, width int) error {
	if doc.NFeatures != 0 && doc.NFeatures != width {
		return errors.Newf("n_features is %d but coefficients have width %d", doc.NFeatures, width)
	}
	return nil
}
