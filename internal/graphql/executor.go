package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/costlens/costlens/internal/metrics"
)

// Executor defaults.
const (
	DefaultMaxAttempts     = 3
	DefaultBackoffCap      = 30 * time.Second
	defaultRetryAfter      = 1 * time.Second
	defaultUpstreamTimeout = 30 * time.Second
)

// request is the wire body for every upstream call.
type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// attempt carries one logical call through the retry loop.
type attempt struct {
	operation     string
	variables     map[string]any
	estimatedCost float64
}

// attemptOutcome classifies a single round trip. The retry loop branches on
// the kind instead of on caught error types, so every class is handled
// explicitly.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRateLimited
	outcomeTransient
	outcomeOperation
	outcomeFatal
	outcomeTimeout
)

type attemptResult struct {
	outcome    attemptOutcome
	status     int
	resp       *Response
	retryAfter time.Duration
	err        error
}

// executor owns the HTTP transport, the retry/backoff loop, and the
// orchestration of the cost tracker and circuit breaker around each attempt.
type executor struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenProvider
	tracker    *CostTracker
	breaker    *CircuitBreaker

	maxAttempts int
	backoffCap  time.Duration
	logger      *logging.Logger

	// sleep is swapped out in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// send runs one logical call: breaker gate, atomic cost reservation, then up
// to maxAttempts round trips. The breaker records at most one failure per
// logical call, never one per attempt.
func (e *executor) send(ctx context.Context, att attempt) (*QueryResult, error) {
	if !e.breaker.CanExecute() {
		metrics.RecordBreakerRejection()
		return nil, ErrCircuitOpen
	}

	reserved := att.estimatedCost
	waitStart := time.Now()
	if err := e.tracker.Reserve(ctx, reserved); err != nil {
		return nil, &TimeoutError{Attempts: 0, Err: err}
	}
	if waited := time.Since(waitStart); waited > 50*time.Millisecond {
		metrics.RecordThrottleWait(waited)
	}

	var last attemptResult
	for attemptNo := 1; attemptNo <= e.maxAttempts; attemptNo++ {
		last = e.attempt(ctx, att)
		metrics.RecordAttempt(outcomeLabel(last.outcome))

		switch last.outcome {
		case outcomeSuccess:
			actual := last.resp.actualCost()
			e.tracker.Settle(reserved, actual, last.resp.throttleStatus())
			e.breaker.RecordSuccess()
			metrics.RecordCostConsumed(actual)
			return &QueryResult{
				Data:     last.resp.Data,
				Errors:   last.resp.Errors,
				Cost:     extractCost(last.resp),
				Attempts: attemptNo,
			}, nil

		case outcomeOperation:
			// The upstream still charges points for rejected operations when
			// it reports a cost block; otherwise the reservation is returned.
			if cost := extractCost(last.resp); cost != nil {
				e.tracker.Settle(reserved, cost.ActualQueryCost, last.resp.throttleStatus())
			} else {
				e.tracker.Refund(reserved)
			}
			e.breaker.RecordFailure()
			return nil, &OperationError{
				StatusCode: last.status,
				Errors:     last.resp.Errors,
				Attempts:   attemptNo,
			}

		case outcomeFatal:
			e.tracker.Refund(reserved)
			return nil, last.err

		case outcomeTimeout:
			e.tracker.Refund(reserved)
			return nil, &TimeoutError{Attempts: attemptNo, Err: last.err}

		case outcomeRateLimited:
			if attemptNo == e.maxAttempts {
				break
			}
			e.warn("rate limited, honoring retry-after",
				zap.Int("attempt", attemptNo),
				zap.Duration("retry_after", last.retryAfter))
			metrics.RecordRetry("rate_limited")
			if err := e.sleep(ctx, last.retryAfter); err != nil {
				e.tracker.Refund(reserved)
				return nil, &TimeoutError{Attempts: attemptNo, Err: err}
			}

		case outcomeTransient:
			if attemptNo == e.maxAttempts {
				break
			}
			backoff := e.backoff(attemptNo)
			e.warn("transient upstream fault, backing off",
				zap.Int("attempt", attemptNo),
				zap.Int("status", last.status),
				zap.Duration("backoff", backoff),
				zap.Error(last.err))
			metrics.RecordRetry("transient")
			if err := e.sleep(ctx, backoff); err != nil {
				e.tracker.Refund(reserved)
				return nil, &TimeoutError{Attempts: attemptNo, Err: err}
			}
		}
	}

	// Transient class exhausted the retry budget: one logical failure.
	e.tracker.Refund(reserved)
	e.breaker.RecordFailure()
	e.error("retries exhausted",
		zap.Int("attempts", e.maxAttempts),
		zap.Int("last_status", last.status),
		zap.Error(last.err))
	return nil, &RetryExhaustedError{
		Attempts:   e.maxAttempts,
		LastStatus: last.status,
		Last:       last.err,
	}
}

// attempt performs one HTTP round trip and classifies the result.
func (e *executor) attempt(ctx context.Context, att attempt) attemptResult {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return attemptResult{outcome: outcomeFatal, err: fmt.Errorf("resolve upstream token: %w", err)}
	}

	body, err := json.Marshal(request{Query: att.operation, Variables: att.variables})
	if err != nil {
		return attemptResult{outcome: outcomeFatal, err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return attemptResult{outcome: outcomeFatal, err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attemptResult{outcome: outcomeTimeout, err: ctxErr}
		}
		return attemptResult{
			outcome: outcomeTransient,
			err:     &TransportError{Retryable: true, Err: err},
		}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return attemptResult{
			outcome:    outcomeRateLimited,
			status:     resp.StatusCode,
			retryAfter: parseRetryAfter(resp),
			err:        &RateLimitError{RetryAfter: parseRetryAfter(resp)},
		}

	case resp.StatusCode >= 500:
		return attemptResult{
			outcome: outcomeTransient,
			status:  resp.StatusCode,
			err: &TransportError{
				StatusCode: resp.StatusCode,
				Retryable:  true,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			},
		}

	case resp.StatusCode == http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return attemptResult{
				outcome: outcomeTransient,
				status:  resp.StatusCode,
				err:     &TransportError{StatusCode: resp.StatusCode, Retryable: true, Err: fmt.Errorf("read response: %w", err)},
			}
		}
		var envelope Response
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return attemptResult{
				outcome: outcomeTransient,
				status:  resp.StatusCode,
				err:     &TransportError{StatusCode: resp.StatusCode, Retryable: true, Err: fmt.Errorf("decode response: %w", err)},
			}
		}
		if len(envelope.Errors) > 0 && !envelope.hasData() {
			return attemptResult{outcome: outcomeOperation, status: resp.StatusCode, resp: &envelope}
		}
		return attemptResult{outcome: outcomeSuccess, status: resp.StatusCode, resp: &envelope}

	default:
		// Remaining 3xx/4xx: fatal to the call, not retried, not a breaker
		// failure.
		return attemptResult{
			outcome: outcomeFatal,
			status:  resp.StatusCode,
			err: &TransportError{
				StatusCode: resp.StatusCode,
				Retryable:  false,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			},
		}
	}
}

// backoff returns the exponential delay after the given 1-based attempt.
func (e *executor) backoff(attemptNo int) time.Duration {
	d := time.Duration(1<<uint(attemptNo)) * time.Second
	if d > e.backoffCap {
		d = e.backoffCap
	}
	return d
}

func (e *executor) warn(msg string, fields ...zap.Field) {
	if e.logger != nil {
		e.logger.Warn(msg, fields...)
	}
}

func (e *executor) error(msg string, fields ...zap.Field) {
	if e.logger != nil {
		e.logger.Error(msg, fields...)
	}
}

// parseRetryAfter reads the Retry-After header as integer seconds or an
// HTTP date, defaulting to one second when absent or unparseable.
func parseRetryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return defaultRetryAfter
}

func extractCost(resp *Response) *Cost {
	if resp == nil || resp.Extensions == nil {
		return nil
	}
	return resp.Extensions.Cost
}

func outcomeLabel(o attemptOutcome) string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeRateLimited:
		return "rate_limited"
	case outcomeTransient:
		return "transient"
	case outcomeOperation:
		return "operation_error"
	case outcomeFatal:
		return "fatal"
	case outcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
