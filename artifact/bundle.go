// Package artifact loads the fitted artifacts a predictor serves from: the
// column metadata, the imputer, the whisker bounds, the classifier and the
// optional label decoder.
//
// A Bundle is loaded once at startup and never mutated afterwards, so it can
// be shared freely between goroutines.
package artifact

import (
	"math"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/model"
	"go.uber.org/zap"
)

// Bundle is the immutable set of artifacts loaded from one directory.
type Bundle struct {
	// Dir is the directory the bundle was loaded from.
	Dir string

	// FeatureMap maps each canonical column to its known aliases.
	FeatureMap map[string][]string
	// Aliases is FeatureMap inverted: alias -> canonical column.
	Aliases map[string]string

	// NumericColumns is the ordered set of columns that are coerced,
	// cleaned, imputed and clipped.
	NumericColumns []string
	// ModelFeatureOrder is the classifier's column order, if it differs
	// from NumericColumns.
	ModelFeatureOrder []string

	Imputer  model.Imputer
	Whiskers map[string]Bounds

	Classifier model.Classifier
	// Proba is Classifier's probability capability, nil when it has none.
	Proba model.ProbabilisticClassifier
	// Labels decodes class ids to names, nil when no encoder was shipped.
	Labels *LabelDecoder

	// ClassifierFile is the candidate file the classifier was decoded from.
	ClassifierFile string
}

// FeatureOrder returns the column order of the classifier's input matrix.
func (b *Bundle) FeatureOrder() []string {
	if len(b.ModelFeatureOrder) > 0 {
		return b.ModelFeatureOrder
	}
	return b.NumericColumns
}

// Canonical resolves a field name through the alias index.
func (b *Bundle) Canonical(name string) (string, bool) {
	canonical, ok := b.Aliases[name]
	return canonical, ok
}

// Bounds is a closed clipping interval. A side that was not given is infinite.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Unbounded returns bounds that clip nothing.
func Unbounded() Bounds {
	return Bounds{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Clip clamps v into b. Both comparisons use the unclipped value; when
// inverted bounds match both sides, Lower is applied last and wins. NaN
// passes through.
func (b Bounds) Clip(v float64) float64 {
	above, below := v > b.Upper, v < b.Lower
	if above {
		v = b.Upper
	}
	if below {
		v = b.Lower
	}
	return v
}

// Options names the artifact files inside the bundle directory. Relative
// names are resolved against the directory, absolute ones are used as is.
type Options struct {
	MetadataFile     string
	ImputerFile      string
	WhiskerFile      string
	LabelEncoderFile string
	// ModelCandidates are tried in order; the first existing file is decoded.
	ModelCandidates []string

	// Logger receives load warnings and the startup summary. Defaults to
	// the "artifact" component logger.
	Logger *zap.SugaredLogger
}

// DefaultOptions returns the documented default filenames.
func DefaultOptions() Options {
	return Options{
		MetadataFile:     "metadata.json",
		ImputerFile:      "imputer.json",
		WhiskerFile:      "whisker_map.json",
		LabelEncoderFile: "label_encoder.json",
		ModelCandidates:  append([]string(nil), am.DefaultModelCandidates...),
	}
}

// OptionsFromConfig builds Options from the artifacts config section,
// keeping defaults for any name left empty.
func OptionsFromConfig(cfg am.ArtifactsConfig) Options {
	opts := DefaultOptions()
	if cfg.MetadataFile != "" {
		opts.MetadataFile = cfg.MetadataFile
	}
	if cfg.ImputerFile != "" {
		opts.ImputerFile = cfg.ImputerFile
	}
	if cfg.WhiskerFile != "" {
		opts.WhiskerFile = cfg.WhiskerFile
	}
	if cfg.LabelEncoderFile != "" {
		opts.LabelEncoderFile = cfg.LabelEncoderFile
	}
	if len(cfg.ModelCandidates) > 0 {
		opts.ModelCandidates = cfg.ModelCandidates
	}
	return opts
}
