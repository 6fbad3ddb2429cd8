// Package server exposes a Predictor over HTTP.
package server

import (
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/exopredict/am"
	"github.com/teranos/exopredict/history"
	"github.com/teranos/exopredict/logger"
	"github.com/teranos/exopredict/predict"
)

// Server is the exopredict HTTP service.
type Server struct {
	predictor atomic.Pointer[predict.Predictor]
	store     *history.Store // nil when history is disabled
	cfg       am.ServerConfig
	logger    *zap.SugaredLogger
	metrics   *Metrics
	limiter   *rate.Limiter // nil when unlimited
	handler   http.Handler

	state atomic.Int32

	mu         sync.Mutex
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records every successful prediction in store.
func WithHistory(store *history.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics replaces the server's metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds a server around p. Routes are registered immediately; nothing
// listens until Serve or Start.
func New(p *predict.Predictor, cfg am.ServerConfig, opts ...Option) *Server {
	s := &Server{cfg: cfg}
	s.predictor.Store(p)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.ComponentLogger("server")
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if len(s.cfg.RequiredFields) == 0 {
		s.cfg.RequiredFields = am.DefaultRequiredFields
	}

	s.handler = s.setupHTTPRoutes()
	s.state.Store(int32(ServerStateStarting))
	return s
}

// Predictor returns the predictor requests are currently served from.
func (s *Server) Predictor() *predict.Predictor { return s.predictor.Load() }

// SetPredictor swaps the predictor for requests that start afterwards.
// Requests in flight finish on the one they started with.
func (s *Server) SetPredictor(p *predict.Predictor) {
	s.predictor.Store(p)
	s.logger.Infow("Predictor replaced", logger.FieldClassifier, p.Bundle().Classifier.Kind())
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }
