// Package config provides configuration management for the parlay engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "PARLAY_ENGINE"
	defaultConfigPath = "config/config.yaml"
)

// newViper returns a viper instance bound to PARLAY_ENGINE_* environment variables
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// app.log_level -> PARLAY_ENGINE_APP_LOG_LEVEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// readExpanded reads the YAML file and expands ${VAR} placeholders before parsing
func readExpanded(v *viper.Viper, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Load reads and parses the configuration from file and environment variables.
// The file must exist.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	if err := readExpanded(v, configPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables are used instead.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if err := readExpanded(v, configPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "parlay-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "parlay_engine")
	v.SetDefault("database.user", "parlay")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.port", "8080")
	v.SetDefault("scoring.max_concurrency", 8)
	v.SetDefault("builder.max_legs", 10)
	v.SetDefault("calibration.num_bins", 10)
	v.SetDefault("calibration.min_samples", 200)
	v.SetDefault("calibration.cache_ttl_seconds", 300)
	v.SetDefault("calibration.training_window_days", 90)
	v.SetDefault("calibration.retrain_schedule", "0 4 * * *")
	v.SetDefault("calibration.retrain_interval_hours", 24)
	v.SetDefault("settlement.schedule", "@every 5m")
	v.SetDefault("settlement.batch_size", 500)
	v.SetDefault("settlement.max_run_seconds", 120)
	v.SetDefault("settlement.claim_timeout_seconds", 600)
	v.SetDefault("settlement.reevaluation_window_hours", 48)
	v.SetDefault("settlement.tie_sports", []string{"soccer", "nfl"})
	v.SetDefault("feed.rate_limit", 20.0)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("model_service.request_timeout_seconds", 5)
	v.SetDefault("model_service.cache_ttl_seconds", 60)
}

// ReloadFromEnv reloads the configuration from PARLAY_ENGINE_CONFIG_PATH when it is set
func ReloadFromEnv(cfg *Config) error {
	envPath := os.Getenv(envPrefix + "_CONFIG_PATH")
	if envPath == "" {
		return nil
	}
	newCfg, err := Load(envPath)
	if err != nil {
		return err
	}
	*cfg = *newCfg
	return nil
}
