// Package predict turns raw input rows into predictions from an artifact
// bundle.
//
// Rows flow through a fixed pipeline: alias normalization, type coercion,
// domain cleaning, imputation, whisker clipping and inference. One input row
// yields a structured result; several yield a CSV table on disk.
package predict

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/record"
)

// Options control one Predict call.
type Options struct {
	// WantProbabilities requests per-class probabilities. Classifiers
	// without probability support ignore it.
	WantProbabilities bool
	// OutputPath overrides where a batch table is written.
	OutputPath string
}

// Predictor serves predictions from one immutable bundle. It is safe for
// concurrent use.
type Predictor struct {
	bundle    *artifact.Bundle
	outputDir string
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithOutputDir sets the directory of default batch tables.
func WithOutputDir(dir string) PredictorOption {
	return func(p *Predictor) {
		if dir != "" {
			p.outputDir = dir
		}
	}
}

// WithClock replaces the clock used to name batch tables.
func WithClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) { p.now = now }
}

// WithLogger sets the predictor's logger.
func WithLogger(l *zap.SugaredLogger) PredictorOption {
	return func(p *Predictor) { p.logger = l }
}

// New returns a Predictor over b. Batch tables default to the bundle
// directory.
func New(b *artifact.Bundle, opts ...PredictorOption) *Predictor {
	p := &Predictor{
		bundle:    b,
		outputDir: b.Dir,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("predict")
	}
	return p
}

// Bundle returns the artifacts the predictor serves from.
func (p *Predictor) Bundle() *artifact.Bundle { return p.bundle }

// OutputDir returns the directory default batch tables are written to.
func (p *Predictor) OutputDir() string { return p.outputDir }

// Predict runs the pipeline over rows. Zero rows fail with ErrEmptyInput.
// Unparseable values, unsupported probability requests and undecodable
// classes are recovered and reported in Result.Diagnostics.
func (p *Predictor) Predict(ctx context.Context, rows []record.Row, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyInput, "predict")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, p.logger)

	f := normalize(p.bundle, rows, log)
	clean(f)
	if err := imputeAndClip(p.bundle, f); err != nil {
		return nil, err
	}
	inf, err := infer(p.bundle, f, opts.WantProbabilities, log)
	if err != nil {
		return nil, err
	}

	result, err := p.shape(f, inf, opts.OutputPath)
	if err != nil {
		return nil, err
	}
	result.Diagnostics = Diagnostics{
		Unparseable:          f.unparseable,
		DecodeFailures:       inf.decodeFailures,
		ProbabilitiesOmitted: inf.probaOmitted,
	}

	if result.Batch != nil {
		log.Infow("Batch predictions written",
			logger.FieldRows, result.Batch.Rows,
			logger.FieldLocation, result.Batch.Location)
	} else {
		log.Debugw("Prediction", logger.FieldLabel, result.Single.Prediction)
	}
	return result, nil
}
