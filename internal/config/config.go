package config

import (
	"time"
)

// Config represents the complete application configuration. Values come from
// three layers: built-in defaults, an optional YAML config file, and
// environment variables with the COSTLENS_ prefix.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Budget   BudgetConfig   `mapstructure:"budget"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Ops      OpsConfig      `mapstructure:"ops"`
}

// UpstreamConfig describes the GraphQL endpoint this process talks to.
type UpstreamConfig struct {
	// Endpoint is the full URL of the GraphQL endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `mapstructure:"token_env"`

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration `mapstructure:"timeout"`

	// QueryCost and MutationCost are the estimated cost points reserved
	// before a request when the caller does not supply an estimate.
	QueryCost    float64 `mapstructure:"query_cost"`
	MutationCost float64 `mapstructure:"mutation_cost"`
}

// BudgetConfig seeds the cost bucket before the first server report arrives.
type BudgetConfig struct {
	Capacity    float64       `mapstructure:"capacity"`
	RestoreRate float64       `mapstructure:"restore_rate"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
}

// RetryConfig tunes the retry loop.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffCap  time.Duration `mapstructure:"backoff_cap"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration.
// Valid levels: trace, debug, info, warn, error.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// OpsConfig points at the named-operations library file.
type OpsConfig struct {
	Path string `mapstructure:"path"`
}
