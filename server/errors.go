package server

import (
	"net/http"

	"github.com/teranos/exopredict/errors"
)

// Sentinel errors for conditions this layer adds on top of the core.
var (
	// ErrServiceUnavailable indicates an optional service (history) is not configured
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUnknownPrediction indicates a label outside the closed analysis map
	ErrUnknownPrediction = errors.New("unknown prediction type")

	// ErrNoConfidence indicates the classifier gave no probability for its own prediction
	ErrNoConfidence = errors.New("prediction has no confidence")
)

// statusFor maps an error to the HTTP status the handlers answer with.
func statusFor(err error) int {
	switch {
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
