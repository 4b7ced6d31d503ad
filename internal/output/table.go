package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/costlens/costlens/internal/graphql"
)

// TableFormatter renders results as ASCII tables.
type TableFormatter struct{}

// FormatRun renders the operation outcome plus budget state.
func (f *TableFormatter) FormatRun(result *RunResult) (string, error) {
	if result == nil || result.Result == nil {
		return "", nil
	}

	res := result.Result

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Attempts", res.Attempts})
	t.AppendRow(table.Row{"Errors", len(res.Errors)})

	if res.Cost != nil {
		t.AppendRow(table.Row{"Requested cost", fmt.Sprintf("%.1f", res.Cost.RequestedQueryCost)})
		t.AppendRow(table.Row{"Actual cost", fmt.Sprintf("%.1f", res.Cost.ActualQueryCost)})
	}

	t.AppendRow(table.Row{"Budget", budgetSummary(result.Budget)})
	if result.Breaker != "" {
		t.AppendRow(table.Row{"Breaker", result.Breaker})
	}

	sections := []string{t.Render()}

	if body := formatData(res.Data); body != "" {
		sections = append(sections, "Data:\n"+body)
	}

	if len(res.Errors) > 0 {
		sections = append(sections, formatErrors(res.Errors))
	}

	return strings.Join(sections, "\n\n"), nil
}

// FormatBudget renders a budget snapshot as a table.
func (f *TableFormatter) FormatBudget(snapshot graphql.BudgetSnapshot) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Capacity", fmt.Sprintf("%.1f", snapshot.Capacity)})
	t.AppendRow(table.Row{"Available", fmt.Sprintf("%.1f", snapshot.Available)})
	t.AppendRow(table.Row{"Restore rate", fmt.Sprintf("%.1f pts/s", snapshot.RestoreRate)})
	return t.Render(), nil
}

func budgetSummary(snapshot graphql.BudgetSnapshot) string {
	if snapshot.Capacity <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.1f/%.1f (+%.1f/s)", snapshot.Available, snapshot.Capacity, snapshot.RestoreRate)
}

func formatData(data json.RawMessage) string {
	if len(data) == 0 || string(data) == "null" {
		return ""
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return string(data)
	}
	return pretty.String()
}

func formatErrors(errs []graphql.ResponseError) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Message", "Path"})
	for i, e := range errs {
		t.AppendRow(table.Row{i + 1, e.Message, formatPath(e.Path)})
	}
	return t.Render()
}

func formatPath(path []any) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, 0, len(path))
	for _, p := range path {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}
