package errors

import (
	"context"
	"net/http"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens/internal/graphql"
)

func TestFromClientErrorMapsTaxonomy(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "circuit open",
			err:        graphql.ErrCircuitOpen,
			wantCode:   "CIRCUIT_OPEN",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "operation error",
			err: &graphql.OperationError{
				StatusCode: 200,
				Errors:     []graphql.ResponseError{{Message: "bad field"}},
				Attempts:   1,
			},
			wantCode:   "GRAPHQL_OPERATION_ERROR",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "retry exhausted",
			err:        &graphql.RetryExhaustedError{Attempts: 3, LastStatus: 502},
			wantCode:   "RETRY_EXHAUSTED",
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "timeout",
			err:        &graphql.TimeoutError{Attempts: 2, Err: context.DeadlineExceeded},
			wantCode:   "TIMEOUT",
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "rate limited",
			err:        &graphql.RateLimitError{RetryAfter: 3 * time.Second},
			wantCode:   "RATE_LIMITED",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "transport",
			err:        &graphql.TransportError{StatusCode: 503, Retryable: true},
			wantCode:   "UPSTREAM_ERROR",
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := FromClientError(ctx, tc.err)
			require.NotNil(t, envelope)
			assert.Equal(t, tc.wantCode, envelope.Code)
			assert.Equal(t, tc.wantStatus, HTTPStatusFromEnvelope(envelope))
			assert.NotEmpty(t, envelope.CorrelationID)
		})
	}
}

func TestEnsureEnvelopePassesThroughExisting(t *testing.T) {
	original := gferrors.NewErrorEnvelope("NOT_FOUND", "missing")
	assert.Same(t, original, EnsureEnvelope(original))
}

func TestEnsureEnvelopeWrapsPlainError(t *testing.T) {
	envelope := EnsureEnvelope(assert.AnError)
	require.NotNil(t, envelope)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Code)
}

func TestHTTPStatusFromCodeDefaultsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}

func TestResponseDetailsMergesContextAndDetails(t *testing.T) {
	envelope := gferrors.NewErrorEnvelope("INVALID_INPUT", "nope")
	envelope = envelope.WithDetails(map[string]interface{}{"field": "name"})
	envelope, _ = envelope.WithContext(map[string]interface{}{"hint": "try again"})

	details := ResponseDetails(envelope)
	assert.Equal(t, "name", details["field"])
	assert.Equal(t, "try again", details["hint"])
}
