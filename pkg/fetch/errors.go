package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is a transport failure or an unexpected status; retried on the next tick
	ErrNetwork = errors.New("network error")
	// ErrNotFound means the DAG or partition does not exist; polling stops
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the token was rejected or has expired
	ErrUnauthorized = errors.New("unauthorized")
)

// FetchError describes a failed request to the data layer.
// Kind is one of the sentinels above or depgraph.ErrInvalidGraph.
type FetchError struct {
	Op         string // "fetch graph", "fetch run", ...
	Subject    string
	StatusCode int
	Kind       error
	Cause      error
}

func (e *FetchError) Error() string {
	msg := e.Op
	if e.Subject != "" {
		msg += " " + e.Subject
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", msg, e.Kind)
}

// Unwrap exposes both the classification and the underlying cause
func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// kindForStatus maps a non-2xx HTTP status to an error class
func kindForStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrNetwork
	}
}

// IsRetryable reports whether polling should continue after err
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrNotFound)
}
