package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/costlens/costlens/internal/errors"
	"github.com/costlens/costlens/internal/graphql"
)

// IntrospectHandler exposes the client's budget and breaker state for
// operators.
type IntrospectHandler struct {
	client *graphql.Client
}

// NewIntrospectHandler creates the introspection handler.
func NewIntrospectHandler(client *graphql.Client) *IntrospectHandler {
	return &IntrospectHandler{client: client}
}

// BreakerResponse is the response body for GET /breaker.
type BreakerResponse struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// BudgetHandler serves GET /budget with the current bucket snapshot.
func (h *IntrospectHandler) BudgetHandler(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("upstream client not configured"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.client.BudgetSnapshot())
}

// BreakerHandler serves GET /breaker with the current breaker state.
func (h *IntrospectHandler) BreakerHandler(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("upstream client not configured"))
		return
	}

	response := BreakerResponse{
		State:    h.client.BreakerState().String(),
		Failures: h.client.BreakerFailures(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
