package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/history"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/predict"
	"github.com/teranos/exopredict/record"
)

// PredictCmd predicts the records of a file
var PredictCmd = &cobra.Command{
	Use:   "predict <file|->",
	Short: "Predict records from a JSON or CSV file",
	Long: `Run the prediction pipeline over a file of records.

A .csv file is read as a headered table; anything else is read as JSON, either
one object or an array of objects. "-" reads JSON from stdin.

One record prints its prediction; several records write a prediction table and
print its location.

Examples:
  exopredict predict koi.csv
  exopredict predict koi.csv --output /tmp/koi_predicted.csv
  echo '{"koi_period": 12.5, "koi_prad": 1.2}' | exopredict predict - --proba`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

var (
	predictProba  bool
	predictOutput string
)

func init() {
	PredictCmd.Flags().BoolVar(&predictProba, "proba", false, "Include per-class probabilities")
	PredictCmd.Flags().StringVarP(&predictOutput, "output", "o", "", "Where to write the batch table")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	rows, err := readRows(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	p, err := loadPredictor(cfg)
	if err != nil {
		return err
	}

	res, err := p.Predict(cmd.Context(), rows, predict.Options{
		WantProbabilities: predictProba,
		OutputPath:        predictOutput,
	})
	if err != nil {
		return err
	}

	if err := printResult(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if logger.ShouldOutput(verbosityOf(cmd), logger.OutputDiagnostics) {
		d := res.Diagnostics
		pterm.Info.Printfln("unparseable values: %d, undecodable classes: %d, probabilities omitted: %t",
			d.Unparseable, d.DecodeFailures, d.ProbabilitiesOmitted)
	}

	recordCLIHistory(cmd, cfg, p, rows, res)
	return nil
}

// readRows reads records from path, or JSON from stdin when path is "-"
func readRows(path string, stdin io.Reader) ([]record.Row, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read stdin")
		}
		rows, _, err := record.ParseJSON(data)
		return rows, err
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return record.ReadCSVFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	rows, _, err := record.ParseJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return rows, nil
}

// printResult prints a single result as indented JSON or a batch location
func printResult(w io.Writer, res *predict.Result) error {
	if res.Batch != nil {
		_, err := fmt.Fprintf(w, "Wrote %d predictions to %s\n", res.Batch.Rows, res.Batch.Location)
		return err
	}

	data, err := json.MarshalIndent(res.Single, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// recordCLIHistory stores the call when history is enabled. A failure only warns.
func recordCLIHistory(cmd *cobra.Command, cfg *am.Config, p *predict.Predictor, rows []record.Row, res *predict.Result) {
	store, closeHistory, err := openHistory(cfg)
	if err != nil {
		pterm.Warning.Printfln("Prediction not recorded: %v", err)
		return
	}
	defer closeHistory()
	if store == nil {
		return
	}

	entry := history.Entry{
		Source:     history.SourceCLI,
		Classifier: p.Bundle().Classifier.Kind(),
		Rows:       len(rows),
	}
	if res.Single != nil {
		entry.Prediction = res.Single.Prediction
		if c, ok := res.Single.Confidence(); ok {
			entry.Confidence = &c
		}
	} else {
		entry.Location = res.Batch.Location
	}
	if _, err := store.Record(cmd.Context(), entry); err != nil {
		pterm.Warning.Printfln("Prediction not recorded: %v", err)
	}
}
