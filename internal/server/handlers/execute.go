package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/costlens/costlens/internal/errors"
	"github.com/costlens/costlens/internal/graphql"
	"github.com/costlens/costlens/internal/ops"
)

// maxExecuteBodyBytes bounds the accepted request body.
const maxExecuteBodyBytes = 1 << 20

// ExecuteHandler serves POST /execute, forwarding operations through the
// cost-aware client.
type ExecuteHandler struct {
	client  *graphql.Client
	library *ops.Library
}

// NewExecuteHandler creates the execute handler. The ops library may be nil
// when no named-operations file is configured.
func NewExecuteHandler(client *graphql.Client, library *ops.Library) *ExecuteHandler {
	return &ExecuteHandler{client: client, library: library}
}

// ExecuteRequest is the request body for POST /execute. Either Operation or
// Name must be set.
type ExecuteRequest struct {
	Operation string         `json:"operation,omitempty"`
	Name      string         `json:"name,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Cost      float64        `json:"cost,omitempty"`
}

// ExecuteResponse is the response body for a successful execution.
type ExecuteResponse struct {
	Data     json.RawMessage         `json:"data"`
	Errors   []graphql.ResponseError `json:"errors,omitempty"`
	Cost     *graphql.Cost           `json:"cost,omitempty"`
	Attempts int                     `json:"attempts"`
	Budget   graphql.BudgetSnapshot  `json:"budget"`
}

// ServeHTTP handles the execute request.
func (h *ExecuteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("upstream client not configured"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxExecuteBodyBytes))
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("failed to read request body"))
		return
	}

	var req ExecuteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	operation := strings.TrimSpace(req.Operation)
	kind := ""
	if operation == "" && req.Name != "" {
		if h.library == nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("named operations are not configured"))
			return
		}
		op, ok := h.library.Get(req.Name)
		if !ok {
			respondWithError(w, r, apperrors.NewNotFoundError("unknown operation name: "+req.Name))
			return
		}
		operation = op.Document
		kind = op.Kind
		if req.Cost <= 0 && op.Cost > 0 {
			req.Cost = op.Cost
		}
	}

	if operation == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("either operation or name is required"))
		return
	}

	if kind == "" {
		kind = "query"
		if strings.HasPrefix(strings.TrimSpace(operation), "mutation") {
			kind = "mutation"
		}
	}

	var result *graphql.QueryResult
	if kind == "mutation" {
		result, err = h.client.ExecuteMutation(r.Context(), operation, req.Variables, req.Cost)
	} else {
		result, err = h.client.ExecuteQuery(r.Context(), operation, req.Variables, req.Cost)
	}
	if err != nil {
		respondWithError(w, r, apperrors.FromClientError(r.Context(), err))
		return
	}

	response := ExecuteResponse{
		Data:     result.Data,
		Errors:   result.Errors,
		Cost:     result.Cost,
		Attempts: result.Attempts,
		Budget:   h.client.BudgetSnapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// OpsHandler serves GET /ops, listing the named operations library.
type OpsHandler struct {
	library *ops.Library
}

// NewOpsHandler creates the ops listing handler.
func NewOpsHandler(library *ops.Library) *OpsHandler {
	return &OpsHandler{library: library}
}

// OpsEntry is one row of the ops listing.
type OpsEntry struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

// ServeHTTP lists the configured named operations.
func (h *OpsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries := []OpsEntry{}
	if h.library != nil {
		for _, op := range h.library.List() {
			entries = append(entries, OpsEntry{
				Name:        op.Name,
				Kind:        op.Kind,
				Description: op.Description,
				Cost:        op.Cost,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"operations": entries})
}
