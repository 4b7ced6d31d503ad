// Package metrics emits application metrics through the gofulmen telemetry
// system. All helpers are safe to call before InitMetrics: they degrade to
// no-ops while the telemetry system is nil.
package metrics

import (
	"time"

	"github.com/costlens/costlens/internal/observability"
)

// Metric names following Prometheus conventions.
var (
	RequestsTotal       = "graphql_requests_total"
	AttemptsTotal       = "graphql_attempts_total"
	RetriesTotal        = "graphql_retries_total"
	CostConsumedTotal   = "graphql_cost_points_consumed_total"
	ThrottleWaitMs      = "graphql_throttle_wait_ms"
	BreakerTransitions  = "graphql_breaker_transitions_total"
	BreakerRejections   = "graphql_breaker_rejections_total"
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
)

// RecordRequest records one logical query or mutation with its outcome.
func RecordRequest(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RequestsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordAttempt records a single HTTP round trip by classified outcome.
func RecordAttempt(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AttemptsTotal,
			1,
			map[string]string{"outcome": outcome},
		)
	}
}

// RecordRetry records a retry decision by reason.
func RecordRetry(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RetriesTotal,
			1,
			map[string]string{"reason": reason},
		)
	}
}

// RecordCostConsumed records server-charged cost points.
func RecordCostConsumed(points float64) {
	if points <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CostConsumedTotal,
			points,
			nil,
		)
	}
}

// RecordThrottleWait records time spent waiting for bucket capacity.
func RecordThrottleWait(d time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			ThrottleWaitMs,
			d,
			nil,
		)
	}
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(from, to string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BreakerTransitions,
			1,
			map[string]string{
				"from": from,
				"to":   to,
			},
		)
	}
}

// RecordBreakerRejection records a call rejected without network I/O.
func RecordBreakerRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BreakerRejections,
			1,
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{"check": checkName},
		)
	}
}
