package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/costlens/costlens/internal/observability"
)

var (
	mutateFile      string
	mutateName      string
	mutateVariables string
	mutateCost      float64
	mutateEndpoint  string
	mutateOutput    string
)

var mutateCmd = &cobra.Command{
	Use:   "mutate [operation]",
	Short: "Run a GraphQL mutation",
	Long: `Run a GraphQL mutation against the configured endpoint.

The operation document must start with the "mutation" keyword; queries are
rejected so a paste mistake cannot silently run the wrong kind of operation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		doc, libOp, err := resolveOperation(cfg, args, mutateName, mutateFile)
		if err != nil {
			return err
		}

		vars, err := parseVariables(mutateVariables)
		if err != nil {
			return err
		}

		cost := mutateCost
		if cost <= 0 && libOp != nil {
			cost = libOp.Cost
		}

		client, err := buildClient(cfg, mutateEndpoint)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Running mutation",
			zap.Float64("estimated_cost", cost),
			zap.Int("variables", len(vars)))

		result, err := client.ExecuteMutation(cmd.Context(), doc, vars, cost)
		if err != nil {
			return err
		}

		return renderResult(client, result, mutateOutput)
	},
}

func init() {
	rootCmd.AddCommand(mutateCmd)

	mutateCmd.Flags().StringVarP(&mutateFile, "file", "f", "", "read the operation document from a file")
	mutateCmd.Flags().StringVarP(&mutateName, "name", "n", "", "run a named operation from the ops library")
	mutateCmd.Flags().StringVar(&mutateVariables, "variables", "", "operation variables as a JSON object")
	mutateCmd.Flags().Float64Var(&mutateCost, "cost", 0, "estimated cost points to reserve (default from config)")
	mutateCmd.Flags().StringVar(&mutateEndpoint, "endpoint", "", "override the configured GraphQL endpoint")
	mutateCmd.Flags().StringVarP(&mutateOutput, "output", "o", "table", "output format: table or json")
}
