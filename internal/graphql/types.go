package graphql

import (
	"bytes"
	"encoding/json"
	"time"
)

// Response is the upstream GraphQL envelope, decoded once at the transport
// boundary. Data is kept raw so callers can unmarshal into their own types.
type Response struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []ResponseError `json:"errors,omitempty"`
	Extensions *Extensions     `json:"extensions,omitempty"`
}

// ResponseError is a single server-reported GraphQL error. Errors may coexist
// with partial data.
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Extensions carries the cost accounting block the upstream attaches to
// responses.
type Extensions struct {
	Cost *Cost `json:"cost,omitempty"`
}

// Cost reports how many points the operation consumed and, when present, the
// server's authoritative view of the remaining budget.
type Cost struct {
	RequestedQueryCost float64         `json:"requestedQueryCost"`
	ActualQueryCost    float64         `json:"actualQueryCost"`
	ThrottleStatus     *ThrottleStatus `json:"throttleStatus,omitempty"`
}

// ThrottleStatus is the server's report of the cost budget. When present it
// always wins over local estimation.
type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable"`
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
}

// QueryResult is the typed outcome of a successful execution. Errors may be
// populated alongside Data when the upstream returned partial results.
type QueryResult struct {
	Data     json.RawMessage `json:"data,omitempty"`
	Errors   []ResponseError `json:"errors,omitempty"`
	Cost     *Cost           `json:"cost,omitempty"`
	Attempts int             `json:"attempts"`
}

// HasErrors reports whether the upstream attached any GraphQL errors.
func (r *QueryResult) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// BudgetSnapshot is a point-in-time view of the cost budget, exposed for
// health and observability reporting.
type BudgetSnapshot struct {
	Capacity    float64   `json:"capacity"`
	Available   float64   `json:"available"`
	RestoreRate float64   `json:"restore_rate"`
	LastUpdate  time.Time `json:"last_update"`
}

// hasData reports whether the envelope carries a non-null data payload.
func (r *Response) hasData() bool {
	if r == nil || len(r.Data) == 0 {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(r.Data), []byte("null"))
}

// actualCost returns the server-reported actual cost, falling back to zero
// when the extension block is absent.
func (r *Response) actualCost() float64 {
	if r == nil || r.Extensions == nil || r.Extensions.Cost == nil {
		return 0
	}
	return r.Extensions.Cost.ActualQueryCost
}

// throttleStatus returns the server-reported budget, or nil.
func (r *Response) throttleStatus() *ThrottleStatus {
	if r == nil || r.Extensions == nil || r.Extensions.Cost == nil {
		return nil
	}
	return r.Extensions.Cost.ThrottleStatus
}
