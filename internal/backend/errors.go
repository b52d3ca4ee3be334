package backend

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes the classes of remote-call failure so callers can
// decide between retrying and surfacing.
type ErrorKind string

// Error kinds.
const (
	// KindNetwork means the request never produced an HTTP response.
	KindNetwork ErrorKind = "network"
	// KindServer means the backend answered with a 5xx.
	KindServer ErrorKind = "server"
	// KindValidation means the backend rejected the request (4xx).
	KindValidation ErrorKind = "validation"
	// KindRateLimit means the backend throttled the request (429).
	KindRateLimit ErrorKind = "rate_limit"
)

// RequestError is a remote-call failure with enough structure for callers to
// tell network, server, and validation problems apart. Never swallowed; the
// surface behavior is a retryable notification, not a crash.
type RequestError struct {
	Err        error
	Kind       ErrorKind
	Operation  string
	StatusCode int
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Operation, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Operation, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class is worth retrying. Validation
// failures are not; the request will fail the same way again.
func (e *RequestError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindServer, KindRateLimit:
		return true
	default:
		return false
	}
}

// AsRequestError unwraps err to a RequestError if one is in the chain.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
