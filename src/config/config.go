package config

import (
	"fmt"
	"os"

	"sentiment-observer/src/models"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a Config from a YAML file. Environment variables
// (SO_* tags on models.MConfig) override file values, so secrets like the
// Redis password never need to live in the YAML.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. Apply environment overrides
	if err := env.Parse(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.SweepIntervalSeconds <= 0 {
		c.Storage.SweepIntervalSeconds = 60
	}
	if c.Query.RequestTimeout <= 0 {
		c.Query.RequestTimeout = 10
	}
	if c.Query.RangeDays <= 0 {
		c.Query.RangeDays = 7
	}
	if c.Stream.ReconnectBaseDelayMs <= 0 {
		c.Stream.ReconnectBaseDelayMs = 1000
	}
	if c.Stream.ReconnectMaxDelayMs <= 0 {
		c.Stream.ReconnectMaxDelayMs = 30000
	}
	if c.View.DebounceMs <= 0 {
		c.View.DebounceMs = 300
	}
	if c.View.MaxSeriesPoints <= 0 {
		c.View.MaxSeriesPoints = 2000
	}
	if c.View.PreferencesPath == "" {
		c.View.PreferencesPath = "preferences.yaml"
	}
	if c.View.DefaultResolution == "" {
		c.View.DefaultResolution = "1h"
	}
	if c.Align.ToleranceSeconds <= 0 {
		c.Align.ToleranceSeconds = 3600
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	// Validate Query configuration
	if c.Query.BaseURL == "" {
		return fmt.Errorf("query base URL cannot be empty")
	}
	if c.Query.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Stream configuration
	if c.Stream.URL == "" {
		return fmt.Errorf("stream URL cannot be empty")
	}
	if c.Stream.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts cannot be negative")
	}

	// Validate Resolutions (the registry re-checks ordering invariants)
	for i, r := range c.Resolutions {
		if r.Key == "" {
			return fmt.Errorf("resolution %d must have a key", i)
		}
		if r.DurationSeconds <= 0 {
			return fmt.Errorf("resolution '%s' must have a positive duration", r.Key)
		}
		if r.CacheTTLMs <= 0 {
			return fmt.Errorf("resolution '%s' must have a positive cache TTL", r.Key)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
