package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/graphql"
	"github.com/costlens/costlens/internal/observability"
	"github.com/costlens/costlens/internal/ops"
	"github.com/costlens/costlens/internal/output"
)

// loadAppConfig decodes the merged viper settings into the typed config.
func loadAppConfig() (*config.Config, error) {
	return config.FromSettings(viper.AllSettings())
}

// buildClient constructs the cost-aware client from the loaded config. An
// endpoint override takes precedence over the configured one.
func buildClient(cfg *config.Config, endpointOverride string) (*graphql.Client, error) {
	endpoint := strings.TrimSpace(endpointOverride)
	if endpoint == "" {
		endpoint = strings.TrimSpace(cfg.Upstream.Endpoint)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no upstream endpoint configured (set upstream.endpoint or pass --endpoint)")
	}

	tokenEnv := strings.TrimSpace(cfg.Upstream.TokenEnv)
	if tokenEnv == "" {
		tokenEnv = "COSTLENS_TOKEN"
	}

	logger := observability.CLILogger
	if observability.ServerLogger != nil {
		logger = observability.ServerLogger
	}

	return graphql.New(graphql.Config{
		Endpoint:            endpoint,
		Tokens:              graphql.EnvToken{Name: tokenEnv},
		Timeout:             cfg.Upstream.Timeout,
		BucketCapacity:      cfg.Budget.Capacity,
		RestoreRate:         cfg.Budget.RestoreRate,
		MaxWait:             cfg.Budget.MaxWait,
		FailureThreshold:    cfg.Breaker.FailureThreshold,
		RecoveryTimeout:     cfg.Breaker.RecoveryTimeout,
		MaxAttempts:         cfg.Retry.MaxAttempts,
		BackoffCap:          cfg.Retry.BackoffCap,
		DefaultQueryCost:    cfg.Upstream.QueryCost,
		DefaultMutationCost: cfg.Upstream.MutationCost,
		Logger:              logger,
	})
}

// loadLibrary loads the named-operations library when configured. A missing
// path yields a nil library, not an error.
func loadLibrary(cfg *config.Config) (*ops.Library, error) {
	path := strings.TrimSpace(cfg.Ops.Path)
	if path == "" {
		return nil, nil
	}
	return ops.LoadFile(path)
}

// resolveOperation determines the operation document from, in order: a named
// library entry, an inline argument, a file, or stdin.
func resolveOperation(cfg *config.Config, args []string, opName, filePath string) (doc string, libOp *ops.Operation, err error) {
	if opName != "" {
		library, err := loadLibrary(cfg)
		if err != nil {
			return "", nil, err
		}
		if library == nil {
			return "", nil, fmt.Errorf("ops library not configured (set ops.path)")
		}
		op, ok := library.Get(opName)
		if !ok {
			return "", nil, fmt.Errorf("unknown operation name: %s", opName)
		}
		return op.Document, &op, nil
	}

	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil, nil
	}

	if filePath != "" {
		data, err := os.ReadFile(filePath) // #nosec G304 -- Operation path is user-provided
		if err != nil {
			return "", nil, fmt.Errorf("read operation file: %w", err)
		}
		return string(data), nil, nil
	}

	// Fall back to stdin when piped
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", nil, fmt.Errorf("read operation from stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) != "" {
			return string(data), nil, nil
		}
	}

	return "", nil, fmt.Errorf("no operation supplied (pass it as an argument, via --file, --name, or stdin)")
}

// parseVariables decodes the --variables JSON object.
func parseVariables(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("invalid --variables JSON: %w", err)
	}
	return vars, nil
}

// renderResult formats and prints a run result.
func renderResult(client *graphql.Client, result *graphql.QueryResult, formatName string) error {
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatRun(&output.RunResult{
		Result:  result,
		Budget:  client.BudgetSnapshot(),
		Breaker: client.BreakerState().String(),
	})
	if err != nil {
		return err
	}

	fmt.Println(rendered)
	return nil
}
