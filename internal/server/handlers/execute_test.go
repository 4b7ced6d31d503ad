package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens/internal/graphql"
	"github.com/costlens/costlens/internal/ops"
)

func upstreamStub(t *testing.T, handler http.HandlerFunc) *graphql.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := graphql.New(graphql.Config{
		Endpoint:         srv.URL,
		Tokens:           graphql.StaticToken("test-token"),
		BucketCapacity:   1000,
		RestoreRate:      50,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		MaxAttempts:      1,
	})
	require.NoError(t, err)
	return client
}

func graphqlOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{
		"data": {"shop": {"name": "test"}},
		"extensions": {"cost": {
			"requestedQueryCost": 10,
			"actualQueryCost": 4,
			"throttleStatus": {
				"maximumAvailable": 2000,
				"currentlyAvailable": 1800,
				"restoreRate": 100
			}
		}}
	}`)
}

func TestExecuteHandlerRunsInlineOperation(t *testing.T) {
	client := upstreamStub(t, graphqlOK)
	handler := NewExecuteHandler(client, nil)

	body := `{"operation": "query { shop { name } }"}`
	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExecuteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Attempts)
	require.NotNil(t, resp.Cost)
	assert.Equal(t, 4.0, resp.Cost.ActualQueryCost)
	assert.Equal(t, 2000.0, resp.Budget.Capacity)
}

func TestExecuteHandlerRunsNamedOperation(t *testing.T) {
	client := upstreamStub(t, graphqlOK)

	library, err := ops.Load("test.yaml", []byte(`
operations:
  - name: shop-info
    document: "query { shop { name } }"
    cost: 5
`))
	require.NoError(t, err)

	handler := NewExecuteHandler(client, library)

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"name": "shop-info"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteHandlerUnknownNameReturns404(t *testing.T) {
	client := upstreamStub(t, graphqlOK)

	library, err := ops.Load("test.yaml", []byte(`
operations:
  - name: shop-info
    document: "query { shop { name } }"
`))
	require.NoError(t, err)

	handler := NewExecuteHandler(client, library)

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"name": "missing"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteHandlerRejectsEmptyBody(t *testing.T) {
	client := upstreamStub(t, graphqlOK)
	handler := NewExecuteHandler(client, nil)

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteHandlerMapsOperationErrorTo422(t *testing.T) {
	client := upstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": null, "errors": [{"message": "bad field"}]}`)
	})
	handler := NewExecuteHandler(client, nil)

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"operation": "query { bad }"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExecuteHandlerMapsUpstreamFailureTo502(t *testing.T) {
	client := upstreamStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	handler := NewExecuteHandler(client, nil)

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"operation": "query { x }"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestIntrospectHandlersReportState(t *testing.T) {
	client := upstreamStub(t, graphqlOK)
	handler := NewIntrospectHandler(client)

	req := httptest.NewRequest(http.MethodGet, "/budget", nil)
	rec := httptest.NewRecorder()
	handler.BudgetHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var budget graphql.BudgetSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&budget))
	assert.Equal(t, 1000.0, budget.Capacity)

	req = httptest.NewRequest(http.MethodGet, "/breaker", nil)
	rec = httptest.NewRecorder()
	handler.BreakerHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var breaker BreakerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&breaker))
	assert.Equal(t, "closed", breaker.State)
	assert.Equal(t, 0, breaker.Failures)
}
