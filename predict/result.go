package predict

import (
	"encoding/json"

	"github.com/teranos/exopredict/errors"
)

// SingleResult is the structured prediction for a one-row input.
type SingleResult struct {
	// PredictionIndex is the raw class: an int64 for integral classes,
	// otherwise the classifier's class value verbatim.
	PredictionIndex any `json:"prediction_index"`
	// Prediction is the decoded label, or the raw class when it has none.
	Prediction string `json:"prediction"`
	// Probabilities maps every class label to its probability. Nil when not
	// requested or not supported by the classifier.
	Probabilities map[string]float64 `json:"probabilities"`
}

// Confidence returns the probability of the predicted label.
func (r *SingleResult) Confidence() (float64, bool) {
	p, ok := r.Probabilities[r.Prediction]
	return p, ok
}

// BatchResult points at the prediction table written for a multi-row input.
type BatchResult struct {
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

// Diagnostics counts the conditions Predict recovered from instead of failing.
type Diagnostics struct {
	Unparseable          int
	DecodeFailures       int
	ProbabilitiesOmitted bool
}

// Result holds exactly one of Single or Batch.
type Result struct {
	Single *SingleResult
	Batch  *BatchResult

	Diagnostics Diagnostics
}

// MarshalJSON encodes whichever of Single or Batch is set.
func (r *Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Single != nil:
		return json.Marshal(r.Single)
	case r.Batch != nil:
		return json.Marshal(r.Batch)
	default:
		return nil, errors.New("empty prediction result")
	}
}
