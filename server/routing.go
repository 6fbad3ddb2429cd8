package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/exopredict/logger"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// setupHTTPRoutes registers every handler and wraps the mux in the
// middleware chain: request id, instrumentation, CORS, rate limiting.
func (s *Server) setupHTTPRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.HandleAnalyze)          // One record -> result card
	mux.HandleFunc("POST /api/analyze_csv", s.HandleAnalyzeCSV)   // Array of records -> records + prediction columns
	mux.HandleFunc("POST /api/predict", s.HandlePredict)          // Raw core: single result or batch table location
	mux.HandleFunc("GET /api/history", s.HandleHistory)           // Recent predictions
	mux.HandleFunc("GET /health", s.HandleHealth)                 // Liveness and build info
	mux.Handle("GET /metrics", s.metrics.Handler())               // Prometheus exposition
	mux.HandleFunc("GET /favicon.ico", s.HandleFavicon)           // Static favicon
	mux.HandleFunc("GET /{$}", s.HandleRoot)                      // Banner

	var h http.Handler = mux
	h = s.rateLimitMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.instrumentMiddleware(h)
	h = s.requestIDMiddleware(h)
	return h
}

// requestIDMiddleware assigns every request an id, taken from the
// X-Request-ID header when the client sent one
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// instrumentMiddleware records request metrics and logs each request
func (s *Server) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		// The mux sets Pattern on the request it routed.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		s.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())

		logger.FromContext(r.Context(), s.logger).Debugw("HTTP request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDurationMS, elapsed.Milliseconds())
	})
}

// corsMiddleware adds CORS headers for allowed origins and answers preflights
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed matches origin against server.allowed_origins. "*" allows
// any origin; other entries match by prefix so any port is accepted.
func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// rateLimitMiddleware rejects requests over the configured rate with 429.
// Health and metrics scrapes are never limited.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" && r.URL.Path != "/metrics" && !s.limiter.Allow() {
			s.metrics.rateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
