package output

import (
	"encoding/json"

	"github.com/costlens/costlens/internal/graphql"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatRun renders a run result as JSON.
func (f *JSONFormatter) FormatRun(result *RunResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatBudget renders a budget snapshot as JSON.
func (f *JSONFormatter) FormatBudget(snapshot graphql.BudgetSnapshot) (string, error) {
	return f.marshal(snapshot)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
