// Package graphql implements the cost-aware resilient client core for a
// single upstream GraphQL endpoint that enforces point-based query-cost
// throttling. It combines a leaky-bucket cost tracker fed by the server's
// throttleStatus reports, a three-state circuit breaker, and a retry loop
// with explicit error classification.
package graphql

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/costlens/costlens/internal/metrics"
)

// Default pre-flight cost estimates. Estimates only gate capacity checks; the
// server-reported actual cost is what gets charged.
const (
	DefaultQueryCost    = 10
	DefaultMutationCost = 10
)

// Config configures a Client. Zero values fall back to the documented
// defaults.
type Config struct {
	// Endpoint is the upstream GraphQL URL. Required.
	Endpoint string

	// Tokens supplies the bearer token per request. Required.
	Tokens TokenProvider

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Timeout applies to the default HTTP client only.
	Timeout time.Duration

	// BucketCapacity and RestoreRate seed the local cost budget until the
	// first server throttleStatus report arrives.
	BucketCapacity float64
	RestoreRate    float64

	// MaxWait caps a single capacity sleep in WaitForCapacity/Reserve.
	MaxWait time.Duration

	FailureThreshold int
	RecoveryTimeout  time.Duration

	MaxAttempts int
	BackoffCap  time.Duration

	// DefaultQueryCost and DefaultMutationCost are used when a caller passes
	// a non-positive estimate. The two paths carry separate defaults because
	// mutations typically cost an order of magnitude more than reads.
	DefaultQueryCost    float64
	DefaultMutationCost float64

	Logger *logging.Logger
}

// Client is the facade callers share. One Client owns exactly one cost
// tracker and one circuit breaker; construct isolated instances for isolated
// budgets. Safe for concurrent use.
type Client struct {
	cfg     Config
	tracker *CostTracker
	breaker *CircuitBreaker
	exec    *executor
}

// New validates cfg, applies defaults, and returns a ready client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("graphql client: endpoint is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("graphql client: token provider is required")
	}
	if cfg.BucketCapacity <= 0 {
		cfg.BucketCapacity = 1000
	}
	if cfg.RestoreRate <= 0 {
		cfg.RestoreRate = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultBackoffCap
	}
	if cfg.DefaultQueryCost <= 0 {
		cfg.DefaultQueryCost = DefaultQueryCost
	}
	if cfg.DefaultMutationCost <= 0 {
		cfg.DefaultMutationCost = DefaultMutationCost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	tracker := NewCostTracker(cfg.BucketCapacity, cfg.RestoreRate)
	if cfg.MaxWait > 0 {
		tracker.SetMaxWait(cfg.MaxWait)
	}

	breaker := NewCircuitBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout)
	breaker.OnStateChange = func(from, to BreakerState) {
		metrics.RecordBreakerTransition(from.String(), to.String())
	}

	return &Client{
		cfg:     cfg,
		tracker: tracker,
		breaker: breaker,
		exec: &executor{
			endpoint:    cfg.Endpoint,
			httpClient:  httpClient,
			tokens:      cfg.Tokens,
			tracker:     tracker,
			breaker:     breaker,
			maxAttempts: cfg.MaxAttempts,
			backoffCap:  cfg.BackoffCap,
			logger:      cfg.Logger,
			sleep:       sleepCtx,
		},
	}, nil
}

// ExecuteQuery runs a read operation. estimatedCost is a pre-flight hint
// only; pass zero to use the configured default.
func (c *Client) ExecuteQuery(ctx context.Context, query string, variables map[string]any, estimatedCost float64) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("graphql client: operation is empty")
	}
	if beginsWithKeyword(query, "mutation") {
		return nil, errors.New("graphql client: mutation routed through the query path")
	}
	if estimatedCost <= 0 {
		estimatedCost = c.cfg.DefaultQueryCost
	}
	result, err := c.exec.send(ctx, attempt{operation: query, variables: variables, estimatedCost: estimatedCost})
	metrics.RecordRequest("query", err == nil)
	return result, err
}

// ExecuteMutation runs a write operation. The operation string must lexically
// begin with the mutation keyword so a read cannot pick up the mutation cost
// defaults.
func (c *Client) ExecuteMutation(ctx context.Context, mutation string, variables map[string]any, estimatedCost float64) (*QueryResult, error) {
	if strings.TrimSpace(mutation) == "" {
		return nil, errors.New("graphql client: operation is empty")
	}
	if !beginsWithKeyword(mutation, "mutation") {
		return nil, errors.New("graphql client: operation does not begin with the mutation keyword")
	}
	if estimatedCost <= 0 {
		estimatedCost = c.cfg.DefaultMutationCost
	}
	result, err := c.exec.send(ctx, attempt{operation: mutation, variables: variables, estimatedCost: estimatedCost})
	metrics.RecordRequest("mutation", err == nil)
	return result, err
}

// BudgetSnapshot reports the current cost budget for health and
// observability surfaces.
func (c *Client) BudgetSnapshot() BudgetSnapshot {
	return c.tracker.Snapshot()
}

// BreakerState reports the breaker's current state.
func (c *Client) BreakerState() BreakerState {
	return c.breaker.State()
}

// BreakerFailures reports the breaker's consecutive failure count.
func (c *Client) BreakerFailures() int {
	return c.breaker.Failures()
}

// beginsWithKeyword reports whether the operation starts with the given
// GraphQL keyword followed by a non-name character.
func beginsWithKeyword(operation, keyword string) bool {
	trimmed := strings.TrimLeft(operation, " \t\r\n")
	if !strings.HasPrefix(trimmed, keyword) {
		return false
	}
	rest := trimmed[len(keyword):]
	if rest == "" {
		return true
	}
	next := rest[0]
	return !(next == '_' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') || (next >= '0' && next <= '9'))
}
