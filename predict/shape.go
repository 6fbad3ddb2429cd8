package predict

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cast"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/model"
)

// Columns appended to batch output.
const (
	ColumnPrediction = "prediction"
	ColumnConfidence = "confidence_level"
)

// batchTimeFormat names default batch files, e.g. predictions_20240131T093000Z.csv.
const batchTimeFormat = "20060102T150405Z"

// shape turns an inference into a single record or a written batch table.
func (p *Predictor) shape(f *frame, inf *inference, outputPath string) (*Result, error) {
	if len(f.raw) == 1 {
		single := &SingleResult{
			PredictionIndex: predictionIndex(inf.classes[0]),
			Prediction:      inf.labels[0],
		}
		if inf.proba != nil {
			single.Probabilities = inf.proba[0]
		}
		return &Result{Single: single}, nil
	}

	location := outputPath
	if location == "" {
		name := "predictions_" + p.now().UTC().Format(batchTimeFormat) + ".csv"
		location = filepath.Join(p.outputDir, name)
	}
	if err := writeBatch(location, f, inf); err != nil {
		return nil, err
	}
	return &Result{Batch: &BatchResult{Location: location, Rows: len(f.raw)}}, nil
}

func predictionIndex(c model.Class) any {
	if id, ok := c.Int(); ok {
		return id
	}
	return c.Value()
}

// writeBatch writes the original rows plus the prediction columns. Columns
// appear in first-seen order across rows; a row missing a column gets an
// empty cell, and input columns named like the added ones are overwritten.
func writeBatch(location string, f *frame, inf *inference) error {
	var header []string
	seen := make(map[string]bool)
	for _, row := range f.raw {
		for _, key := range row.Keys() {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}
	added := []string{ColumnPrediction}
	if inf.proba != nil {
		added = append(added, ColumnConfidence)
	}
	for _, col := range added {
		if !seen[col] {
			header = append(header, col)
		}
	}

	if err := os.MkdirAll(filepath.Dir(location), am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "create output directory for %s", location)
	}
	out, err := os.Create(location)
	if err != nil {
		return errors.Wrapf(err, "create %s", location)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", location)
	}

	record := make([]string, len(header))
	for i, row := range f.raw {
		for k, col := range header {
			switch {
			case col == ColumnPrediction:
				record[k] = inf.labels[i]
			case col == ColumnConfidence && inf.proba != nil:
				record[k] = ""
				if p, ok := inf.proba[i][inf.labels[i]]; ok {
					record[k] = strconv.FormatFloat(p, 'g', -1, 64)
				}
			default:
				value, _ := row.Get(col)
				record[k] = cell(value)
			}
		}
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "write %s", location)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "write %s", location)
	}
	return errors.Wrapf(out.Close(), "close %s", location)
}

// cell renders a raw field value. Objects and arrays are written as JSON so
// they survive into the table instead of collapsing to an empty cell.
func cell(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
	}
	return cast.ToString(value)
}
