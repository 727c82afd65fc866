package retry

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind is the semantic category of a failed attempt.
type ErrorKind string

// The closed set of error kinds.
const (
	KindNetwork        ErrorKind = "network"
	KindTimeout        ErrorKind = "timeout"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindRateLimit      ErrorKind = "rate_limit"
	KindServer         ErrorKind = "server"
	KindClient         ErrorKind = "client"
	KindValidation     ErrorKind = "validation"
	KindUnknown        ErrorKind = "unknown"
)

// Kinds lists every ErrorKind in declaration order.
var Kinds = []ErrorKind{
	KindNetwork,
	KindTimeout,
	KindAuthentication,
	KindAuthorization,
	KindRateLimit,
	KindServer,
	KindClient,
	KindValidation,
	KindUnknown,
}

// Retryable reports whether failures of this kind are transient.
// It does not consider attempt budgets; see [Policy.ShouldRetry].
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer, KindRateLimit:
		return true
	default:
		return false
	}
}

func (k ErrorKind) String() string { return string(k) }

// DefaultRetryAfter is used for 429 responses without a usable Retry-After
// header, in seconds.
const DefaultRetryAfter = 60

// ClassifiedError describes one failed attempt.
//
// It is created once per failure and never mutated; pass it by value.
// StatusCode is 0 when no response was received. RetryAfter is in seconds
// and is only populated for [KindRateLimit]; 0 means absent.
type ClassifiedError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	RetryAfter int
	OccurredAt time.Time
	Cause      error
}

func (e ClassifiedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the original transport error, if any.
func (e ClassifiedError) Unwrap() error { return e.Cause }

// RetryAfterDuration returns RetryAfter as a duration.
func (e ClassifiedError) RetryAfterDuration() time.Duration {
	return time.Duration(e.RetryAfter) * time.Second
}

// StatusError is returned by transports for a received response whose
// status is not a success. Body holds at most a short prefix of the
// response body for diagnostics.
type StatusError struct {
	Code   int
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}
