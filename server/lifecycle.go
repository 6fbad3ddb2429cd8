package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
)

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateStarting:
		return "starting"
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Start listens on addr (":8000" form) and serves until Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already started")
	}
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.setState(ServerStateRunning)
	s.logger.Infow(fmt.Sprintf("HTTP server listening on %s", ln.Addr()),
		logger.FieldAddress, ln.Addr().String(),
		logger.FieldClassifier, s.Predictor().Bundle().Classifier.Kind())

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "http server failed")
}

// Stop drains in-flight requests, waiting at most until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil || s.getState() == ServerStateStopped {
		return nil
	}

	s.setState(ServerStateDraining)
	err := srv.Shutdown(ctx)
	s.setState(ServerStateStopped)
	if err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}
