package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/model"
)

// ClassifierDecoder decodes one serialized classifier format.
type ClassifierDecoder struct {
	Name   string
	Decode func(data []byte) (model.Classifier, error)
}

// ClassifierDecoders are tried in order on the classifier file. The first
// that succeeds wins; when all fail the last error is returned.
var ClassifierDecoders = []ClassifierDecoder{
	{Name: "json", Decode: model.DecodeJSON},
	{Name: "yaml", Decode: model.DecodeYAML},
}

// loader carries the state of one Load call.
type loader struct {
	dir  string
	opts Options
	log  *zap.SugaredLogger
}

// Load reads every artifact from dir. Required artifacts that are missing
// fail with ErrMissingArtifact, a metadata file without numeric_cols with
// ErrInvalidMetadata, and an imputer fitted on other columns with
// ErrArtifactMismatch.
func Load(dir string, opts Options) (*Bundle, error) {
	l := &loader{dir: dir, opts: opts, log: opts.Logger}
	if l.log == nil {
		l.log = logger.ComponentLogger("artifact")
	}

	b := &Bundle{Dir: dir}

	meta, err := l.metadata()
	if err != nil {
		return nil, err
	}
	b.NumericColumns = meta.NumericCols
	b.ModelFeatureOrder = meta.ModelFeatureOrder
	if b.FeatureMap, b.Aliases, err = meta.featureMap(l.log); err != nil {
		return nil, err
	}

	if b.Imputer, err = l.imputer(b.NumericColumns); err != nil {
		return nil, err
	}
	if b.Whiskers, err = l.whiskers(); err != nil {
		return nil, err
	}
	if b.Classifier, b.ClassifierFile, err = l.classifier(); err != nil {
		return nil, err
	}
	b.Proba, _ = b.Classifier.(model.ProbabilisticClassifier)
	if b.Labels, err = l.labels(); err != nil {
		return nil, err
	}

	if n := b.Classifier.NumFeatures(); n != len(b.FeatureOrder()) {
		l.log.Warnw("Classifier width differs from the feature order, predictions will fail",
			logger.FieldClassifier, b.Classifier.Kind(),
			"classifier_features", n,
			"feature_order", len(b.FeatureOrder()))
	}

	l.log.Infow("Artifact bundle loaded",
		logger.FieldArtifact, dir,
		logger.FieldClassifier, b.Classifier.Kind(),
		logger.FieldFile, filepath.Base(b.ClassifierFile),
		"numeric_columns", len(b.NumericColumns),
		"aliases", len(b.Aliases),
		"whiskers", len(b.Whiskers),
		"probabilities", b.Proba != nil,
		"label_decoder", b.Labels != nil)
	return b, nil
}

func (l *loader) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.dir, name)
}

// readRequired reads a required artifact, mapping absence to ErrMissingArtifact.
func (l *loader) readRequired(kind, name string) ([]byte, string, error) {
	path := l.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, path, errors.MissingArtifact(kind, path)
	}
	if err != nil {
		return nil, path, errors.Wrapf(err, "read %s", path)
	}
	return data, path, nil
}

func (l *loader) metadata() (*metadata, error) {
	data, path, err := l.readRequired("metadata", l.opts.MetadataFile)
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return meta, nil
}

func (l *loader) imputer(numeric []string) (model.Imputer, error) {
	data, path, err := l.readRequired("imputer", l.opts.ImputerFile)
	if err != nil {
		return nil, err
	}
	im, err := model.DecodeImputer(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	if names := im.Features(); names != nil && !slices.Equal(names, numeric) {
		return nil, errors.WithHint(
			errors.Mismatchf("imputer was fitted on %v, metadata lists numeric columns %v", names, numeric),
			"refit the imputer on numeric_cols or fix metadata.json")
	}
	if im.NumFeatures() != len(numeric) {
		l.log.Warnw("Imputer width differs from numeric columns, predictions will fail",
			"imputer_features", im.NumFeatures(),
			"numeric_columns", len(numeric))
	}
	return im, nil
}

func (l *loader) whiskers() (map[string]Bounds, error) {
	data, path, err := l.readRequired("whisker map", l.opts.WhiskerFile)
	if err != nil {
		return nil, err
	}
	whiskers, err := decodeWhiskers(data, l.log)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return whiskers, nil
}

// classifier decodes the first existing candidate file.
func (l *loader) classifier() (model.Classifier, string, error) {
	for _, name := range l.opts.ModelCandidates {
		path := l.path(name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, errors.Wrapf(err, "read %s", path)
		}

		var lastErr error
		for _, dec := range ClassifierDecoders {
			c, err := dec.Decode(data)
			if err == nil {
				l.log.Debugw("Decoded classifier", logger.FieldFile, path, "decoder", dec.Name)
				return c, path, nil
			}
			lastErr = err
		}
		return nil, path, errors.Wrapf(lastErr, "load classifier %s", path)
	}

	missing := errors.Wrapf(errors.ErrMissingArtifact, "no classifier among %v in %s", l.opts.ModelCandidates, l.dir)
	return nil, "", errors.WithHintf(missing, "export the fitted classifier as %s", l.path(firstOr(l.opts.ModelCandidates, "model.json")))
}

// labels loads the optional label encoder; absence is not an error.
func (l *loader) labels() (*LabelDecoder, error) {
	if l.opts.LabelEncoderFile == "" {
		return nil, nil
	}
	path := l.path(l.opts.LabelEncoderFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Debugw("No label encoder, predictions stay raw class ids", logger.FieldFile, path)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	dec, err := DecodeLabelEncoder(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return dec, nil
}

func firstOr(names []string, def string) string {
	if len(names) == 0 {
		return def
	}
	return names[0]
}
