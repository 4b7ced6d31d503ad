package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/costlens/costlens/internal/observability"
)

var (
	queryFile      string
	queryName      string
	queryVariables string
	queryCost      float64
	queryEndpoint  string
	queryOutput    string
)

var queryCmd = &cobra.Command{
	Use:   "query [operation]",
	Short: "Run a GraphQL query",
	Long: `Run a GraphQL query against the configured endpoint.

The operation document can come from an inline argument, a file (--file), a
named entry in the ops library (--name), or stdin. Variables are passed as a
JSON object via --variables.

The client reserves the estimated cost before sending, retries transient
failures with backoff, honors Retry-After on 429s, and settles the bucket to
the server-reported actual cost afterwards.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		doc, libOp, err := resolveOperation(cfg, args, queryName, queryFile)
		if err != nil {
			return err
		}

		vars, err := parseVariables(queryVariables)
		if err != nil {
			return err
		}

		cost := queryCost
		if cost <= 0 && libOp != nil {
			cost = libOp.Cost
		}

		client, err := buildClient(cfg, queryEndpoint)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Running query",
			zap.Float64("estimated_cost", cost),
			zap.Int("variables", len(vars)))

		result, err := client.ExecuteQuery(cmd.Context(), doc, vars, cost)
		if err != nil {
			return err
		}

		return renderResult(client, result, queryOutput)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the operation document from a file")
	queryCmd.Flags().StringVarP(&queryName, "name", "n", "", "run a named operation from the ops library")
	queryCmd.Flags().StringVar(&queryVariables, "variables", "", "operation variables as a JSON object")
	queryCmd.Flags().Float64Var(&queryCost, "cost", 0, "estimated cost points to reserve (default from config)")
	queryCmd.Flags().StringVar(&queryEndpoint, "endpoint", "", "override the configured GraphQL endpoint")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table", "output format: table or json")
}
