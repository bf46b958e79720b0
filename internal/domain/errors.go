package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind int

const (
	// Permanent failures are never retried.
	Permanent ErrorKind = iota
	// Transient failures (rate limit, resource exhausted) may succeed on retry.
	Transient
)

func (k ErrorKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrNothingToIndex   = errors.New("no chunks to index")
	ErrIngestionAborted = errors.New("ingestion aborted")
	ErrIndexLoad        = errors.New("index load failed")
	ErrEmptyBuild       = errors.New("cannot build index from zero entries")
	ErrDimension        = errors.New("vector dimension mismatch")
)

// ProviderError is returned by embedding and generation providers.
type ProviderError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Err        error
}

// NewTransientError wraps err as a retryable provider failure.
func NewTransientError(op string, status int, err error) *ProviderError {
	return &ProviderError{Kind: Transient, Operation: op, StatusCode: status, Err: err}
}

// NewPermanentError wraps err as a non-retryable provider failure.
func NewPermanentError(op string, status int, err error) *ProviderError {
	return &ProviderError{Kind: Permanent, Operation: op, StatusCode: status, Err: err}
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failure (status %d): %v", e.Operation, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failure: %v", e.Operation, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a transient provider classification.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == Transient
}

// IsPermanent reports whether err is a provider failure that must not be retried.
func IsPermanent(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == Permanent
}

// IndexLoadError describes why a persisted bundle could not be loaded.
type IndexLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IndexLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load index %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load index %s: %s", e.Path, e.Reason)
}

func (e *IndexLoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrIndexLoad, e.Err}
	}
	return []error{ErrIndexLoad}
}
