package config

import (
	"time"

	redisclient "github.com/vietddude/guardrail/internal/infra/redis"
	"github.com/vietddude/guardrail/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Reporting  ReportingConfig    `yaml:"reporting"`
	Logging    LoggingConfig      `yaml:"logging"`
	Boundaries []BoundaryConfig   `yaml:"boundaries"`
	Recovery   RecoveryConfig     `yaml:"recovery"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ReportingConfig holds remote fault reporting settings. An empty endpoint
// disables remote delivery entirely.
type ReportingConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Production    bool          `yaml:"production"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BoundaryConfig declares one protected region.
type BoundaryConfig struct {
	Name        string        `yaml:"name"`
	Kind        string        `yaml:"kind"` // transaction, upload, auth, critical
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	RecoveryURL string        `yaml:"recovery_url"`
}

// RecoveryConfig controls startup recovery behavior.
type RecoveryConfig struct {
	ReplayOnStart bool `yaml:"replay_on_start"`
}
