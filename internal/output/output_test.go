package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costlens/costlens/internal/graphql"
)

func sampleRun() *RunResult {
	return &RunResult{
		Result: &graphql.QueryResult{
			Data:     json.RawMessage(`{"shop":{"name":"test"}}`),
			Attempts: 2,
			Cost: &graphql.Cost{
				RequestedQueryCost: 10,
				ActualQueryCost:    7,
			},
		},
		Budget: graphql.BudgetSnapshot{
			Capacity:    1000,
			Available:   850,
			RestoreRate: 50,
			LastUpdate:  time.Now(),
		},
		Breaker: "closed",
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestTableFormatterIncludesBudgetAndData(t *testing.T) {
	formatter := &TableFormatter{}
	rendered, err := formatter.FormatRun(sampleRun())
	require.NoError(t, err)

	assert.Contains(t, rendered, "Attempts")
	assert.Contains(t, rendered, "850.0/1000.0")
	assert.Contains(t, rendered, "closed")
	assert.Contains(t, rendered, `"name": "test"`)
}

func TestTableFormatterRendersErrors(t *testing.T) {
	run := sampleRun()
	run.Result.Errors = []graphql.ResponseError{
		{Message: "field deprecated", Path: []any{"shop", "legacy"}},
	}

	formatter := &TableFormatter{}
	rendered, err := formatter.FormatRun(run)
	require.NoError(t, err)

	assert.Contains(t, rendered, "field deprecated")
	assert.Contains(t, rendered, "shop.legacy")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	rendered, err := formatter.FormatRun(sampleRun())
	require.NoError(t, err)

	var decoded RunResult
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Equal(t, 2, decoded.Result.Attempts)
	assert.Equal(t, 1000.0, decoded.Budget.Capacity)
	assert.Equal(t, "closed", decoded.Breaker)
}

func TestFormatBudget(t *testing.T) {
	formatter := &TableFormatter{}
	rendered, err := formatter.FormatBudget(graphql.BudgetSnapshot{
		Capacity:    1000,
		Available:   400,
		RestoreRate: 50,
	})
	require.NoError(t, err)

	assert.Contains(t, rendered, "400.0")
	assert.Contains(t, rendered, "50.0 pts/s")
}

func TestTableFormatterNilResult(t *testing.T) {
	formatter := &TableFormatter{}
	rendered, err := formatter.FormatRun(nil)
	require.NoError(t, err)
	assert.Empty(t, rendered)
}
