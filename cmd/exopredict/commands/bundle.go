package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/history"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/predict"
)

// verbosityOf returns the -v count of cmd
func verbosityOf(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

// loadPredictor loads the configured bundle and wraps it in a predictor
func loadPredictor(cfg *am.Config) (*predict.Predictor, error) {
	opts := artifact.OptionsFromConfig(cfg.Artifacts)
	opts.Logger = logger.Logger.Named("artifact")

	b, err := artifact.Load(cfg.Artifacts.Dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load artifacts from %s", cfg.Artifacts.Dir)
	}
	return newPredictor(cfg, b), nil
}

func newPredictor(cfg *am.Config, b *artifact.Bundle) *predict.Predictor {
	return predict.New(b,
		predict.WithOutputDir(cfg.OutputDir()),
		predict.WithLogger(logger.Logger.Named("predict")))
}

// openHistory opens and migrates the history database. It returns a nil
// store when history is disabled; close is always safe to call.
func openHistory(cfg *am.Config) (store *history.Store, close func(), err error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}

	db, err := history.OpenWithMigrations(cfg.Database.Path, logger.Logger.Named("history"))
	if err != nil {
		return nil, func() {}, errors.Wrapf(err, "failed to open history at %s", cfg.Database.Path)
	}
	return history.NewStore(db), func() { db.Close() }, nil
}
