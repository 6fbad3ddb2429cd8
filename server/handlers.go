package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/history"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/version"
)

// HandleRoot answers the bare banner clients use as a liveness probe
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("exopredict API is running"))
}

// HandleHealth reports build info and what the loaded bundle supports
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	b := s.Predictor().Bundle()

	status := "ok"
	if st := s.getState(); st == ServerStateDraining || st == ServerStateStopped {
		status = stateString(st)
	}

	_ = writeJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Version:       info.Version,
		Commit:        info.CommitHash,
		BuildTime:     info.BuildTime,
		Classifier:    b.Classifier.Kind(),
		Probabilities: b.Proba != nil,
		History:       s.store != nil,
	})
}

// HandleFavicon serves favicon.ico from server.static_dir
func (s *Server) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StaticDir == "" {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.StaticDir, "favicon.ico")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.FromContext(r.Context(), s.logger).Warnw("Failed to read favicon",
				logger.FieldFile, path, logger.FieldError, err)
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/vnd.microsoft.icon")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// HandleHistory lists recent predictions, newest first
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)
	if s.store == nil {
		writeWrappedError(w, log, errors.WithHint(ErrServiceUnavailable, "set database.enabled = true"),
			"history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		writeWrappedError(w, log, err, "failed to read history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	_ = writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}
