package graphql

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call before any
// network I/O happens.
var ErrCircuitOpen = errors.New("circuit open: upstream calls suspended")

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// RateLimitError is a single 429 response. It is retried internally and only
// surfaces wrapped in RetryExhaustedError when the retry budget runs out.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by upstream, retry after %s", e.RetryAfter)
}

// TransportError covers network faults, 5xx responses, and fatal non-success
// statuses. Retryable reports whether the executor may try again.
type TransportError struct {
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream transport error: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OperationError is a 200 response carrying top-level GraphQL errors with no
// data. It is never retried: a semantically invalid operation stays invalid.
type OperationError struct {
	StatusCode int
	Errors     []ResponseError
	Attempts   int
}

func (e *OperationError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("graphql operation rejected: %s (%d errors, %d attempts)", e.Errors[0].Message, len(e.Errors), e.Attempts)
	}
	return fmt.Sprintf("graphql operation rejected (%d attempts)", e.Attempts)
}

// RetryExhaustedError is raised when a transient class (429, 5xx, network)
// survived every attempt. Last holds the final attempt's error and LastStatus
// the final HTTP status, zero when the fault never reached HTTP.
type RetryExhaustedError struct {
	Attempts   int
	LastStatus int
	Last       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// TimeoutError is a caller deadline or cancellation observed mid-flight. It
// never flips the circuit breaker: a caller-imposed timeout says nothing
// about upstream health.
type TimeoutError struct {
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deadline exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a caller deadline or cancellation.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
