// Package config provides configuration management for the Parlay Gorilla engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Feed        FeedConfig        `mapstructure:"feed" validate:"required"`
	Engine      EngineConfig      `mapstructure:"engine" validate:"required"`
	Coverage    CoverageConfig    `mapstructure:"coverage" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	Tracking    TrackingConfig    `mapstructure:"tracking"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
	Health      HealthConfig      `mapstructure:"health" validate:"required"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// FeedConfig represents the odds-and-model feed configuration
type FeedConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	APIKey            string  `mapstructure:"api_key" validate:"required"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// EngineConfig represents parlay construction configuration
type EngineConfig struct {
	ModelVersion       string `mapstructure:"model_version" validate:"required"`
	DefaultRiskProfile string `mapstructure:"default_risk_profile" validate:"required,riskprofile"`
	DefaultNumLegs     int    `mapstructure:"default_num_legs" validate:"required,min=1,max=20"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	IncludePlayerProps bool   `mapstructure:"include_player_props"`
}

// CoverageConfig bounds scenario and round-robin enumeration output
type CoverageConfig struct {
	ScenarioMax   int `mapstructure:"scenario_max" validate:"required,gt=0"`
	RoundRobinMax int `mapstructure:"round_robin_max" validate:"required,gt=0"`
}

// CalibrationConfig represents the calibration loop configuration
type CalibrationConfig struct {
	CacheTTLMinutes  int      `mapstructure:"cache_ttl_minutes" validate:"required,gt=0"`
	MinBucketSamples int      `mapstructure:"min_bucket_samples" validate:"required,gt=0"`
	LookbackDays     int      `mapstructure:"lookback_days" validate:"required,gt=0"`
	RecalibrateCron  string   `mapstructure:"recalibrate_cron" validate:"required"`
	Sports           []string `mapstructure:"sports" validate:"required,min=1"`
}

// TrackingConfig represents prediction tracking configuration
type TrackingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health endpoint configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// SecretsConfig points at the AWS Secrets Manager overlay, optional outside
// production.
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
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

// FeedTimeout returns the feed HTTP timeout as a duration.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// CalibrationCacheTTL returns the calibration cache TTL as a duration.
func (c *Config) CalibrationCacheTTL() time.Duration {
	return time.Duration(c.Calibration.CacheTTLMinutes) * time.Minute
}

// CalibrationLookback returns the resolved-prediction window as a duration.
func (c *Config) CalibrationLookback() time.Duration {
	return time.Duration(c.Calibration.LookbackDays) * 24 * time.Hour
}
