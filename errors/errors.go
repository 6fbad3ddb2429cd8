// Package errors provides error handling for exopredict.
//
// This package re-exports github.com/cockroachdb/errors (stack traces, hints,
// details, wrapping) and defines the sentinel errors of the prediction
// pipeline. Callers match them with errors.Is; producers wrap them with
// errors.Wrap so the sentinel survives any amount of added context.
//
//	if err := artifact.Load(dir, opts); errors.Is(err, errors.ErrMissingArtifact) {
//	    // abort startup
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Load-time failures. Both abort startup: serving from a partial bundle
// produces silently wrong predictions.
var (
	// ErrMissingArtifact indicates a required artifact file is absent
	ErrMissingArtifact = New("missing artifact")

	// ErrInvalidMetadata indicates the metadata descriptor lacks required keys or is malformed
	ErrInvalidMetadata = New("invalid metadata")
)

// Request-time failures.
var (
	// ErrArtifactMismatch indicates an imputer or classifier shape disagrees with the expected columns
	ErrArtifactMismatch = New("artifact mismatch")

	// ErrEmptyInput indicates predict was called without rows
	ErrEmptyInput = New("no input rows")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// Recovered conditions. The pipeline never returns these; they label log
// lines and metrics so operators can see how often a fallback happened.
var (
	// ErrUnparseableValue marks a non-numeric input that was replaced by null
	ErrUnparseableValue = New("unparseable value")

	// ErrUnsupportedOperation marks a probability request against a classifier without probabilities
	ErrUnsupportedOperation = New("unsupported operation")

	// ErrDecodeFailure marks a class id the label decoder could not map
	ErrDecodeFailure = New("label decode failure")
)

// IsLoadError reports whether err must abort startup.
func IsLoadError(err error) bool {
	return err != nil && IsAny(err, ErrMissingArtifact, ErrInvalidMetadata)
}

// IsArtifactMismatch checks if an error is or wraps ErrArtifactMismatch
func IsArtifactMismatch(err error) bool {
	return err != nil && Is(err, ErrArtifactMismatch)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest or ErrEmptyInput
func IsInvalidRequestError(err error) bool {
	return err != nil && IsAny(err, ErrInvalidRequest, ErrEmptyInput)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// MissingArtifact wraps ErrMissingArtifact with the absent path and a hint
// naming the artifact kind.
func MissingArtifact(kind, path string) error {
	err := Wrapf(ErrMissingArtifact, "%s not found at %s", kind, path)
	return WithHintf(err, "export the %s into the artifacts directory or point artifacts.dir elsewhere", kind)
}

// InvalidMetadataf creates an invalid-metadata error with a formatted message
func InvalidMetadataf(format string, args ...interface{}) error {
	return Wrap(ErrInvalidMetadata, Newf(format, args...).Error())
}

// Mismatchf creates an artifact-mismatch error with a formatted message
func Mismatchf(format string, args ...interface{}) error {
	return Wrap(ErrArtifactMismatch, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
