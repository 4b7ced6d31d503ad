// Package cmd implements the costlens command line interface.
package cmd

import (
	"os"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/costlens/costlens/internal/observability"
)

const (
	appName   = "costlens"
	envPrefix = "COSTLENS"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Cost-aware resilient GraphQL client",
	Long: `costlens runs GraphQL operations against cost-throttled endpoints.

It tracks the server's cost budget locally, paces requests to stay inside
the leaky bucket, retries transient failures with backoff, and trips a
circuit breaker when the upstream keeps failing.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/costlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(appName, verbose)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(configDir + "/" + appName)
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else {
		// It's OK if config file doesn't exist, we have defaults
		if verbose {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				observability.CLILogger.Debug("No config file found, using defaults and environment variables")
			} else {
				observability.CLILogger.Warn("Error reading config file", zap.Error(err))
			}
		}
	}

	setDefaults()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Upstream defaults
	viper.SetDefault("upstream.endpoint", "")
	viper.SetDefault("upstream.token_env", "COSTLENS_TOKEN")
	viper.SetDefault("upstream.timeout", "30s")
	viper.SetDefault("upstream.query_cost", 10)
	viper.SetDefault("upstream.mutation_cost", 10)

	// Budget defaults (overwritten by the first server report)
	viper.SetDefault("budget.capacity", 1000)
	viper.SetDefault("budget.restore_rate", 50)
	viper.SetDefault("budget.max_wait", "60s")

	// Breaker defaults
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.recovery_timeout", "30s")

	// Retry defaults
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.backoff_cap", "30s")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.profile", "structured")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Health check defaults
	viper.SetDefault("health.enabled", true)

	// Named operations library (optional)
	viper.SetDefault("ops.path", "")
}
