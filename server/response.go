package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/exopredict/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

// writeWrappedError logs err and answers with the status its kind maps to,
// or fallbackStatus when the kind has no specific status.
func writeWrappedError(w http.ResponseWriter, log *zap.SugaredLogger, err error, context string, fallbackStatus int) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = fallbackStatus
	}

	if status >= http.StatusInternalServerError {
		log.Errorw(context, "error", err, "status", status)
	} else {
		log.Debugw(context, "error", err, "status", status)
	}
	writeError(w, status, errors.Wrap(err, context).Error())
}

// statusRecorder captures the status code a handler writes
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
