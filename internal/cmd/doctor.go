package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/costlens/costlens/internal/observability"
)

var doctorProbe bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the local setup and, with --probe, send a
minimal query to the configured endpoint to verify connectivity and read the
server's throttle status.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("=== " + appName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 6

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Gofulmen access
		version := crucible.GetVersion()
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 3: Environment
		observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 4: Config
		cfg, cfgErr := loadAppConfig()
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[4/%d] Checking config... ⚠️  %v", totalChecks, cfgErr), zap.Error(cfgErr))
			allChecks = false
		} else if strings.TrimSpace(cfg.Upstream.Endpoint) == "" {
			observability.CLILogger.Warn(fmt.Sprintf("[4/%d] Checking config... ⚠️  no upstream.endpoint configured", totalChecks))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking config... ✅ endpoint %s", totalChecks, cfg.Upstream.Endpoint),
				zap.String("endpoint", cfg.Upstream.Endpoint))
		}

		// Check 5: Token
		if cfgErr == nil {
			tokenEnv := strings.TrimSpace(cfg.Upstream.TokenEnv)
			if tokenEnv == "" {
				tokenEnv = "COSTLENS_TOKEN"
			}
			if strings.TrimSpace(os.Getenv(tokenEnv)) != "" {
				observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking token... ✅ %s is set", totalChecks, tokenEnv))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking token... ⚠️  %s is not set", totalChecks, tokenEnv))
				allChecks = false
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking token... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 6: Upstream probe (optional)
		if !doctorProbe {
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking upstream... skipped (pass --probe to send a test query)", totalChecks))
		} else if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking upstream... ⚠️  skipped (config not loaded)", totalChecks))
		} else {
			client, err := buildClient(cfg, "")
			if err != nil {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking upstream... ⚠️  %v", totalChecks, err), zap.Error(err))
				allChecks = false
			} else {
				start := time.Now()
				_, err := client.ExecuteQuery(ctx, "query { __typename }", nil, 1)
				elapsed := time.Since(start).Round(time.Millisecond)
				if err != nil {
					observability.CLILogger.Error(fmt.Sprintf("[6/%d] Checking upstream... ❌ %v", totalChecks, err), zap.Error(err))
					allChecks = false
				} else {
					observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking upstream... ✅ responded in %s", totalChecks, elapsed),
						zap.Duration("elapsed", elapsed))

					snapshot := client.BudgetSnapshot()
					lines := []string{
						"Cost budget",
						fmt.Sprintf("Capacity:     %.1f", snapshot.Capacity),
						fmt.Sprintf("Available:    %.1f", snapshot.Available),
						fmt.Sprintf("Restore rate: %.1f pts/s", snapshot.RestoreRate),
					}
					_, _ = fmt.Fprint(os.Stdout, ascii.DrawBox(strings.Join(lines, "\n"), 0))
				}
			}
		}

		observability.CLILogger.Info("")
		if allChecks {
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorProbe, "probe", false, "send a minimal query to the configured endpoint")
}
