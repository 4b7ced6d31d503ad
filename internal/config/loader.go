// Package config provides centralized configuration management. Settings are
// layered: built-in defaults, an optional YAML file discovered by viper, then
// COSTLENS_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// FromSettings unmarshals the merged viper settings map into a typed Config.
// Duration fields accept Go duration strings ("30s", "2m").
func FromSettings(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks constraints that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Budget.Capacity < 0 {
		return fmt.Errorf("budget.capacity must be >= 0, got %g", c.Budget.Capacity)
	}
	if c.Budget.RestoreRate < 0 {
		return fmt.Errorf("budget.restore_rate must be >= 0, got %g", c.Budget.RestoreRate)
	}
	if c.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("breaker.failure_threshold must be >= 0, got %d", c.Breaker.FailureThreshold)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Upstream.QueryCost < 0 || c.Upstream.MutationCost < 0 {
		return fmt.Errorf("upstream cost estimates must be >= 0")
	}
	if ep := strings.TrimSpace(c.Upstream.Endpoint); ep != "" {
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			return fmt.Errorf("upstream.endpoint must be an http(s) URL, got %q", ep)
		}
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
