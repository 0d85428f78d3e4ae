// Package merrors defines the error taxonomy raised by the resolver client,
// the adapters, and the top-level client. Every kind is a distinct struct
// carrying a message, an optional wrapped cause, and (where meaningful) extra
// context fields.
package merrors

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates the resolver returned 404 for a path. It is never
// counted as a circuit-breaker failure.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if strings.TrimSpace(e.Path) != "" {
		return fmt.Sprintf("moniker not found: %s", e.Path)
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return "moniker not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// AccessDeniedError indicates the resolver returned 403 for /fetch/{path}.
type AccessDeniedError struct {
	Path    string
	Message string
}

func (e *AccessDeniedError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	return fmt.Sprintf("access denied: %s", e.Path)
}

// ResolutionError wraps any other non-2xx response during resolution.
type ResolutionError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed for %s (status %d): %v", e.Path, e.StatusCode, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FetchError wraps any failure during adapter fetch after a successful
// resolution.
type FetchError struct {
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TimeoutError indicates a bounded wait was exceeded, either at the
// transport level or by retry exhaustion within an adapter.
type TimeoutError struct {
	Operation string
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s timed out: %v", e.Operation, e.Err)
	}

	return fmt.Sprintf("%s timed out", e.Operation)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectionRefusedError indicates a transport-level connection failure, or
// a circuit-breaker fail-fast. RemainingCooldown is set only in the latter
// case.
type ConnectionRefusedError struct {
	Message           string
	RemainingCooldown string
}

func (e *ConnectionRefusedError) Error() string {
	if e.RemainingCooldown != "" {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RemainingCooldown)
	}

	return e.Message
}

// AuthenticationFailureError indicates a credential was rejected by an
// adapter's backing source.
type AuthenticationFailureError struct {
	Message string
	Err     error
}

func (e *AuthenticationFailureError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "authentication failure"
}

func (e *AuthenticationFailureError) Unwrap() error { return e.Err }

// RetriesExhaustedError indicates every attempt within the retry engine
// failed and the last error was classified retryable.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// ConfigurationError indicates a required configuration option is missing
// or malformed.
type ConfigurationError struct {
	Option  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("missing required configuration option: %s", e.Option)
}

// ValidationError indicates a response failed schema validation.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return "validation failed"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
