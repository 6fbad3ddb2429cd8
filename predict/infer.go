package predict

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/model"
)

// inference is the classifier output for every row of a frame.
type inference struct {
	classes []model.Class
	labels  []string
	// proba is nil unless probabilities were requested and supported.
	proba []map[string]float64

	probaOmitted   bool
	decodeFailures int
}

// infer builds the model matrix in feature order and runs the classifier.
func infer(b *artifact.Bundle, f *frame, wantProba bool, log *zap.SugaredLogger) (*inference, error) {
	X := featureMatrix(b, f)

	classes, err := b.Classifier.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	inf := &inference{classes: classes, labels: make([]string, len(classes))}

	if wantProba {
		if b.Proba == nil {
			inf.probaOmitted = true
			log.Debugw("Probabilities requested but unsupported, omitting",
				logger.FieldClassifier, b.Classifier.Kind(),
				logger.FieldError, errors.ErrUnsupportedOperation)
		} else if inf.proba, err = probabilities(b, X, log); err != nil {
			return nil, err
		}
	}

	for i, c := range classes {
		inf.labels[i] = c.String()
		if b.Labels == nil {
			continue
		}
		name, err := b.Labels.Decode(c)
		if err != nil {
			inf.decodeFailures++
			log.Debugw("Class did not decode, keeping raw id", logger.FieldLabel, c.String(), logger.FieldError, err)
			continue
		}
		inf.labels[i] = name
	}
	return inf, nil
}

// featureMatrix lays the frame out in the classifier's feature order.
// Features outside the numeric table are read from the renamed rows, with
// unparseable or absent values as 0.
func featureMatrix(b *artifact.Bundle, f *frame) *mat.Dense {
	order := b.FeatureOrder()
	rows := len(f.rows)
	X := mat.NewDense(rows, len(order), nil)

	for k, name := range order {
		if j, ok := f.index[name]; ok {
			for i := 0; i < rows; i++ {
				X.Set(i, k, f.numeric.At(i, j))
			}
			continue
		}
		for i, row := range f.rows {
			value, ok := row.Get(name)
			if !ok {
				continue
			}
			if v, err := coerce(value); err == nil && !math.IsNaN(v) {
				X.Set(i, k, v)
			}
		}
	}
	return X
}

// probabilities maps each row's probability vector onto class labels. If any
// class fails to decode, every label falls back to its raw id.
func probabilities(b *artifact.Bundle, X mat.Matrix, log *zap.SugaredLogger) ([]map[string]float64, error) {
	proba, err := b.Proba.PredictProba(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict probabilities")
	}

	classes := b.Proba.Classes()
	labels := make([]string, len(classes))
	for i, c := range classes {
		labels[i] = c.String()
	}
	if b.Labels != nil {
		if decoded, err := b.Labels.DecodeAll(classes); err == nil {
			labels = decoded
		} else {
			log.Debugw("Class labels did not decode, keying probabilities by raw id", logger.FieldError, err)
		}
	}

	rows, cols := proba.Dims()
	out := make([]map[string]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make(map[string]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][labels[j]] = proba.At(i, j)
		}
	}
	return out, nil
}
