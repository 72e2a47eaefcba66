// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Mission  MissionConfig  `mapstructure:"mission"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Report   ReportConfig   `mapstructure:"report"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// MissionConfig identifies the mission and the instrument registry used
// for the allow-list and operational-start boundaries.
type MissionConfig struct {
	Name         string `mapstructure:"name"`
	RegistryPath string `mapstructure:"registry_path"`
}

// ArchiveConfig locates the canonical request archive and selects the
// key-reservation backend guarding its namespace.
type ArchiveConfig struct {
	Root        string            `mapstructure:"root"`
	Reservation ReservationConfig `mapstructure:"reservation"`
}

// ReservationConfig selects how canonical keys are atomically reserved.
// Backend is one of "memory", "redis", "postgres".
type ReservationConfig struct {
	Backend  string         `mapstructure:"backend"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// CatalogConfig selects the file catalog backend used to resolve
// requested filenames to bucket/object keys. Backend is "static" or
// "elasticsearch".
type CatalogConfig struct {
	Backend       string              `mapstructure:"backend"`
	Index         string              `mapstructure:"index"`
	DevBucket     string              `mapstructure:"dev_bucket"`
	Bucket        string              `mapstructure:"bucket"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// DispatchConfig controls the invocation dispatcher. Backend is "lambda"
// or "sns".
type DispatchConfig struct {
	Backend        string `mapstructure:"backend"`
	FunctionName   string `mapstructure:"function_name"`
	TopicARN       string `mapstructure:"topic_arn"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	InitialBackoff int    `mapstructure:"initial_backoff"` // milliseconds
	Timeout        int    `mapstructure:"timeout"`         // milliseconds, per attempt
	MaxParallel    int    `mapstructure:"max_parallel"`
}

// GetInitialBackoff returns the first retry delay.
func (d DispatchConfig) GetInitialBackoff() time.Duration {
	if d.InitialBackoff <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(d.InitialBackoff) * time.Millisecond
}

// GetTimeout returns the per-attempt invocation timeout.
func (d DispatchConfig) GetTimeout() time.Duration {
	if d.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.Timeout) * time.Millisecond
}

// GetMaxAttempts returns the attempt bound, defaulting to 3.
func (d DispatchConfig) GetMaxAttempts() int {
	if d.MaxAttempts <= 0 {
		return 3
	}
	return d.MaxAttempts
}

// GetMaxParallel returns the dispatch parallelism bound, defaulting to 4.
func (d DispatchConfig) GetMaxParallel() int {
	if d.MaxParallel <= 0 {
		return 4
	}
	return d.MaxParallel
}

// AWSConfig holds region and notification settings.
type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"ses"`
}

// ReportConfig controls where the submission report is written.
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
