// Package config provides configuration management for the parlay engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Scoring      ScoringConfig      `mapstructure:"scoring" validate:"required"`
	Builder      BuilderConfig      `mapstructure:"builder"`
	Correlation  CorrelationConfig  `mapstructure:"correlation"`
	Calibration  CalibrationConfig  `mapstructure:"calibration" validate:"required"`
	Settlement   SettlementConfig   `mapstructure:"settlement" validate:"required"`
	Feed         FeedConfig         `mapstructure:"feed"`
	ModelService ModelServiceConfig `mapstructure:"model_service"`
	Metrics      MetricsConfig      `mapstructure:"metrics" validate:"required"`
	Health       HealthConfig       `mapstructure:"health"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ScoringConfig controls candidate scoring
type ScoringConfig struct {
	MaxConcurrency int     `mapstructure:"max_concurrency" validate:"required,gt=0"`
	MinEdge        float64 `mapstructure:"min_edge" validate:"gte=-1,lte=1"`
}

// BuilderConfig controls parlay construction. Profiles left out of the file
// keep their built-in criteria.
type BuilderConfig struct {
	MaxLegs  int                          `mapstructure:"max_legs" validate:"gte=0,lte=20"`
	Profiles map[string]RiskProfileConfig `mapstructure:"profiles" validate:"dive,keys,oneof=conservative balanced degen,endkeys"`
}

// RiskProfileConfig narrows candidate selection for one risk profile
type RiskProfileConfig struct {
	MinConfidence  float64 `mapstructure:"min_confidence" validate:"gte=0,lte=100"`
	MaxLegsPerGame int     `mapstructure:"max_legs_per_game" validate:"gte=0"`
}

// CorrelationConfig overrides entries of the same-game correlation table
type CorrelationConfig struct {
	Rules []CorrelationRuleConfig `mapstructure:"rules" validate:"dive"`
}

// CorrelationRuleConfig is one coefficient override
type CorrelationRuleConfig struct {
	Sport    string  `mapstructure:"sport"`
	First    string  `mapstructure:"first" validate:"required"`
	Second   string  `mapstructure:"second" validate:"required"`
	Relation string  `mapstructure:"relation" validate:"required,oneof=aligned opposed"`
	Rho      float64 `mapstructure:"rho" validate:"gte=-1,lte=1"`
}

// CalibrationConfig controls calibration bins and their cache
type CalibrationConfig struct {
	NumBins            int    `mapstructure:"num_bins" validate:"required,gt=0,lte=100"`
	MinSamples         int    `mapstructure:"min_samples" validate:"required,gt=0"`
	CacheTTLSeconds    int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	TrainingWindowDays int    `mapstructure:"training_window_days" validate:"required,gt=0"`
	RetrainSchedule    string `mapstructure:"retrain_schedule" validate:"required,cronspec"`
	RetrainIntervalHrs int    `mapstructure:"retrain_interval_hours" validate:"required,gt=0"`
}

// SettlementConfig controls the settlement orchestrator
type SettlementConfig struct {
	Schedule              string   `mapstructure:"schedule" validate:"required,cronspec"`
	BatchSize             int      `mapstructure:"batch_size" validate:"required,gt=0"`
	MaxRunSeconds         int      `mapstructure:"max_run_seconds" validate:"required,gt=0"`
	ClaimTimeoutSeconds   int      `mapstructure:"claim_timeout_seconds" validate:"required,gt=0"`
	ReevaluationWindowHrs int      `mapstructure:"reevaluation_window_hours" validate:"required,gte=24,lte=72"`
	TieSports             []string `mapstructure:"tie_sports"`
}

// FeedConfig configures where feed events are published
type FeedConfig struct {
	WebhookURL     string  `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookToken   string  `mapstructure:"webhook_token"`
	WebsocketURL   string  `mapstructure:"websocket_url" validate:"omitempty,url"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gte=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// ModelServiceConfig represents the external model service used for scoring
type ModelServiceConfig struct {
	GRPCAddress           string `mapstructure:"grpc_address"`
	UseTLS                bool   `mapstructure:"use_tls"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
	CacheTTLSeconds       int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health check server
type HealthConfig struct {
	Port string `mapstructure:"port"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// CacheTTL returns the calibration cache TTL
func (c CalibrationConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RetrainInterval returns the expected time between training runs
func (c CalibrationConfig) RetrainInterval() time.Duration {
	return time.Duration(c.RetrainIntervalHrs) * time.Hour
}

// MaxRunDuration returns the soft time budget of one settlement run
func (c SettlementConfig) MaxRunDuration() time.Duration {
	return time.Duration(c.MaxRunSeconds) * time.Second
}

// ClaimTimeout returns the age after which a claim is considered stuck
func (c SettlementConfig) ClaimTimeout() time.Duration {
	return time.Duration(c.ClaimTimeoutSeconds) * time.Second
}

// ReevaluationWindow returns the correction window after first settlement
func (c SettlementConfig) ReevaluationWindow() time.Duration {
	return time.Duration(c.ReevaluationWindowHrs) * time.Hour
}
