// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DISPATCH_FUNCTION_NAME
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from an explicit path, bypassing the
// search paths. Used by the CLI tools.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	candidates := []string{
		".env",
		filepath.Join("..", "..", ".env"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Mission.RegistryPath == "" {
		cfg.Mission.RegistryPath = "configs/instrument-registry.json"
	}

	if cfg.Archive.Root == "" {
		cfg.Archive.Root = "requests"
	}
	if cfg.Archive.Reservation.Backend == "" {
		cfg.Archive.Reservation.Backend = "memory"
	}
	if cfg.Archive.Reservation.Postgres.MaxConnections == 0 {
		cfg.Archive.Reservation.Postgres.MaxConnections = 25
	}
	if cfg.Archive.Reservation.Postgres.MaxIdle == 0 {
		cfg.Archive.Reservation.Postgres.MaxIdle = 5
	}
	if cfg.Archive.Reservation.Postgres.SSLMode == "" {
		cfg.Archive.Reservation.Postgres.SSLMode = "disable"
	}

	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = "static"
	}
	if cfg.Catalog.Index == "" {
		cfg.Catalog.Index = "file-catalog"
	}

	if cfg.Dispatch.Backend == "" {
		cfg.Dispatch.Backend = "lambda"
	}
	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = 3
	}
	if cfg.Dispatch.InitialBackoff == 0 {
		cfg.Dispatch.InitialBackoff = 500
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = 30000
	}
	if cfg.Dispatch.MaxParallel == 0 {
		cfg.Dispatch.MaxParallel = 4
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Mission.Name == "" {
		return fmt.Errorf("mission.name is required")
	}

	switch cfg.Archive.Reservation.Backend {
	case "memory":
	case "redis":
		if cfg.Archive.Reservation.Redis.Address == "" {
			return fmt.Errorf("archive.reservation.redis.address is required")
		}
	case "postgres":
		if cfg.Archive.Reservation.Postgres.Host == "" {
			return fmt.Errorf("archive.reservation.postgres.host is required")
		}
		if cfg.Archive.Reservation.Postgres.Database == "" {
			return fmt.Errorf("archive.reservation.postgres.database is required")
		}
	default:
		return fmt.Errorf("unknown reservation backend %q", cfg.Archive.Reservation.Backend)
	}

	switch cfg.Catalog.Backend {
	case "static":
	case "elasticsearch":
		if len(cfg.Catalog.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("catalog.elasticsearch.addresses is required")
		}
	default:
		return fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}

	switch cfg.Dispatch.Backend {
	case "lambda":
		if cfg.Dispatch.FunctionName == "" {
			return fmt.Errorf("dispatch.function_name is required")
		}
	case "sns":
		if cfg.Dispatch.TopicARN == "" {
			return fmt.Errorf("dispatch.topic_arn is required")
		}
	default:
		return fmt.Errorf("unknown dispatch backend %q", cfg.Dispatch.Backend)
	}

	return nil
}
