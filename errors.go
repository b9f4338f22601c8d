package tangguh

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants used in ClientError.Type.
const (
	ErrorTypeConfiguration = "Configuration"
	ErrorTypeTransient     = "Transient"
	ErrorTypeTimeout       = "Timeout"
	ErrorTypeCircuitOpen   = "CircuitOpen"
	ErrorTypeNonRetryable  = "NonRetryable"
	ErrorTypeCanceled      = "Canceled"
)

// Sentinel errors for common failure scenarios
var (
	// ErrCircuitOpen is returned when the circuit breaker refuses a call.
	ErrCircuitOpen = errors.New("tangguh: circuit open")

	// ErrInvalidConfiguration is returned when settings fail validation.
	ErrInvalidConfiguration = errors.New("tangguh: invalid configuration")

	// ErrUnknownClient is returned when looking up an unregistered destination.
	ErrUnknownClient = errors.New("tangguh: unknown client")

	// ErrDuplicateClient is returned when a destination name is registered twice.
	ErrDuplicateClient = errors.New("tangguh: client already registered")
)

// ClientError is the error type surfaced by the pipeline. Type classifies the
// failure; the remaining fields carry diagnostic context.
type ClientError struct {
	Type          string
	Message       string
	Cause         error
	Client        string
	Method        string
	URL           string
	StatusCode    int
	Attempt       int
	MaxAttempts   int
	CorrelationID string
	Duration      time.Duration
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.Client != "" {
		msg = fmt.Sprintf("[%s] %s", e.Client, msg)
	}
	if e.Attempt > 0 || e.MaxAttempts > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxAttempts)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed on
// retry: network errors, internal timeouts, retryable status codes and
// circuit-open fast failures. Configuration errors, non-retryable responses
// and caller cancellation are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeCircuitOpen:
			return true
		default:
			return false
		}
	}

	return false
}

// IsConfigurationError reports whether err stems from invalid settings.
func IsConfigurationError(err error) bool {
	if errors.Is(err, ErrInvalidConfiguration) {
		return true
	}
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeConfiguration
}
