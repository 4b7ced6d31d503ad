package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/costlens/costlens/internal/ops"
	"github.com/costlens/costlens/internal/output"
)

var opsOutput string

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Work with the named operations library",
}

var opsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List named operations",
	Long:  "List the operations defined in the configured ops library (ops.path).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		library, err := loadLibrary(cfg)
		if err != nil {
			return err
		}
		if library == nil || library.Len() == 0 {
			fmt.Println("No named operations configured (set ops.path to a YAML library).")
			return nil
		}

		format, err := output.ParseFormat(opsOutput)
		if err != nil {
			return err
		}

		if format == output.FormatJSON {
			return renderOpsJSON(library)
		}

		lines := make([]string, 0, library.Len()+1)
		lines = append(lines, fmt.Sprintf("Named operations (%d)", library.Len()))
		for _, op := range library.List() {
			line := fmt.Sprintf("%-24s %-8s", op.Name, op.Kind)
			if op.Cost > 0 {
				line += fmt.Sprintf(" cost=%.0f", op.Cost)
			}
			if op.Description != "" {
				line += "  " + op.Description
			}
			lines = append(lines, line)
		}

		_, _ = fmt.Fprint(os.Stdout, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

func renderOpsJSON(library *ops.Library) error {
	entries := library.List()
	data, err := json.MarshalIndent(map[string]any{"operations": entries}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(opsCmd)
	opsCmd.AddCommand(opsListCmd)

	opsListCmd.Flags().StringVarP(&opsOutput, "output", "o", "table", "output format: table or json")
}
