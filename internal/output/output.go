// Package output renders operation results for the CLI in table or JSON
// form.
package output

import (
	"fmt"
	"strings"

	"github.com/costlens/costlens/internal/graphql"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// RunResult bundles everything the CLI shows after running one operation.
type RunResult struct {
	Result  *graphql.QueryResult   `json:"result"`
	Budget  graphql.BudgetSnapshot `json:"budget"`
	Breaker string                 `json:"breaker"`
}

// Formatter renders run results.
type Formatter interface {
	FormatRun(result *RunResult) (string, error)
	FormatBudget(snapshot graphql.BudgetSnapshot) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TableFormatter{}
	}
}
