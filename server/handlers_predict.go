package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/exopredict/artifact"
	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/history"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/predict"
	"github.com/teranos/exopredict/record"
)

// Extra columns /api/analyze_csv appends to each echoed row
const (
	columnModelPrediction = "model_prediction"
	columnConfidenceScore = "confidence_score"
)

// HandleAnalyze predicts one record and answers with its result card
func (s *Server) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	body, ok := s.readBody(w, r, log)
	if !ok {
		return
	}
	var row record.Row
	if err := json.Unmarshal(body, &row); err != nil {
		writeWrappedError(w, log, errors.Wrap(errors.ErrInvalidRequest, err.Error()),
			"request body must be a JSON object", http.StatusBadRequest)
		return
	}

	p := s.Predictor()
	res, err := p.Predict(r.Context(), []record.Row{row}, predict.Options{WantProbabilities: true})
	if err != nil {
		writeWrappedError(w, log, err, "prediction failed", http.StatusInternalServerError)
		return
	}
	s.metrics.observePrediction("analyze", 1, res)

	resp, err := analysisFor(res.Single)
	if err != nil {
		writeWrappedError(w, log, err, "cannot present prediction", http.StatusInternalServerError)
		return
	}

	conf, _ := res.Single.Confidence()
	s.recordHistory(r.Context(), log, p, history.Entry{
		Source:     history.SourceAnalyze,
		Rows:       1,
		Prediction: res.Single.Prediction,
		Confidence: &conf,
	})
	_ = writeJSON(w, http.StatusOK, resp)
}

// analysisFor maps a single result onto the closed set of result cards
func analysisFor(single *predict.SingleResult) (AnalyzeResponse, error) {
	p, ok := single.Confidence()
	if !ok {
		return AnalyzeResponse{}, errors.Wrapf(ErrNoConfidence, "label %q", single.Prediction)
	}
	typ := predictionType(single.Prediction)
	text, ok := analysisTypes[typ]
	if !ok {
		return AnalyzeResponse{}, errors.Wrapf(ErrUnknownPrediction, "%q", typ)
	}
	return AnalyzeResponse{
		Type:        typ,
		Confidence:  p * 100,
		Title:       text.title,
		Description: text.description,
	}, nil
}

// predictionType lower-cases a label and replaces spaces with underscores
func predictionType(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// HandleAnalyzeCSV predicts each record of a JSON array individually and
// echoes the records back with model_prediction and confidence_score added
func (s *Server) HandleAnalyzeCSV(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	body, ok := s.readBody(w, r, log)
	if !ok {
		return
	}
	p := s.Predictor()
	rows, msg := s.parseAnalyzeRows(p.Bundle(), body)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	opts := predict.Options{WantProbabilities: true}
	results := make([]record.Row, 0, len(rows))
	for idx, row := range rows {
		res, err := p.Predict(r.Context(), []record.Row{row}, opts)
		if err == nil {
			s.metrics.observePrediction("analyze_csv", 1, res)
			if _, ok := res.Single.Confidence(); !ok {
				err = errors.Wrapf(ErrNoConfidence, "label %q", res.Single.Prediction)
			}
		}
		if err != nil {
			log.Errorw("Row prediction failed", "row", idx, logger.FieldError, err)
			writeError(w, http.StatusInternalServerError, errors.Wrapf(err, "Error processing row %d", idx).Error())
			return
		}

		conf, _ := res.Single.Confidence()
		out := row.Clone()
		out.Set(columnModelPrediction, predictionType(res.Single.Prediction))
		out.Set(columnConfidenceScore, conf*100)
		results = append(results, out)
	}

	s.recordHistory(r.Context(), log, p, history.Entry{
		Source: history.SourceAnalyzeCSV,
		Rows:   len(rows),
	})
	_ = writeJSON(w, http.StatusOK, results)
}

// isEmptyPayload reports JSON values that carry no data: null, false, 0,
// "", [] and {}.
func isEmptyPayload(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// parseAnalyzeRows validates an analyze_csv payload. A non-empty message is
// the 400 answer.
func (s *Server) parseAnalyzeRows(b *artifact.Bundle, body []byte) ([]record.Row, string) {
	trimmed := bytes.TrimSpace(body)
	var payload any
	if len(trimmed) == 0 || (json.Unmarshal(trimmed, &payload) == nil && isEmptyPayload(payload)) {
		return nil, "No data provided"
	}

	var raw []json.RawMessage
	if trimmed[0] != '[' || json.Unmarshal(trimmed, &raw) != nil {
		return nil, "Data must be an array of objects"
	}

	rows := make([]record.Row, 0, len(raw))
	for idx, item := range raw {
		var row record.Row
		if err := json.Unmarshal(item, &row); err != nil {
			return nil, fmt.Sprintf("Row %d must be an object", idx)
		}

		present := make(map[string]bool, row.Len())
		for _, k := range row.Keys() {
			if canonical, ok := b.Canonical(k); ok {
				k = canonical
			}
			present[k] = true
		}
		var missing []string
		for _, field := range s.cfg.RequiredFields {
			if !present[field] {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Sprintf("Row %d missing required fields: %v", idx, missing)
		}
		rows = append(rows, row)
	}
	return rows, ""
}

// HandlePredict exposes the prediction core directly: an object yields the
// single result, an array yields the location of the written table.
//
// Query parameters:
//
//	proba=true   include per-class probabilities
//	output=NAME  file name for the batch table, inside the output directory
func (s *Server) HandlePredict(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	body, ok := s.readBody(w, r, log)
	if !ok {
		return
	}
	rows, _, err := record.ParseJSON(body)
	if err != nil {
		writeWrappedError(w, log, err, "invalid request body", http.StatusBadRequest)
		return
	}

	p := s.Predictor()
	q := r.URL.Query()
	opts := predict.Options{WantProbabilities: q.Get("proba") == "true"}
	if name := q.Get("output"); name != "" {
		path, err := outputPath(p.OutputDir(), name)
		if err != nil {
			writeWrappedError(w, log, err, "invalid output", http.StatusBadRequest)
			return
		}
		opts.OutputPath = path
	}

	res, err := p.Predict(r.Context(), rows, opts)
	if err != nil {
		writeWrappedError(w, log, err, "prediction failed", http.StatusInternalServerError)
		return
	}
	s.metrics.observePrediction("predict", len(rows), res)

	entry := history.Entry{Source: history.SourcePredict, Rows: len(rows)}
	if res.Single != nil {
		entry.Prediction = res.Single.Prediction
		if p, ok := res.Single.Confidence(); ok {
			entry.Confidence = &p
		}
	} else {
		entry.Location = res.Batch.Location
	}
	s.recordHistory(r.Context(), log, p, entry)

	_ = writeJSON(w, http.StatusOK, res)
}

// outputPath resolves a client-supplied table name inside the output
// directory. Only bare file names are accepted.
func outputPath(dir, name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errors.NewInvalidRequestError("output must be a file name, got %q", name)
	}
	return filepath.Join(dir, name), nil
}

// readBody reads a size-capped request body, answering the error itself
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeWrappedError(w, log, err, "failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// recordHistory stores entry when history is enabled. Failures are logged
// and counted, never returned to the client.
func (s *Server) recordHistory(ctx context.Context, log *zap.SugaredLogger, p *predict.Predictor, entry history.Entry) {
	if s.store == nil {
		return
	}
	entry.RequestID = logger.RequestIDFromContext(ctx)
	entry.Classifier = p.Bundle().Classifier.Kind()

	if _, err := s.store.Record(ctx, entry); err != nil {
		s.metrics.history.WithLabelValues("error").Inc()
		log.Warnw("Failed to record prediction history", logger.FieldError, err)
		return
	}
	s.metrics.history.WithLabelValues("ok").Inc()
}
