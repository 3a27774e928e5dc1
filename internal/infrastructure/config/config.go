// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	window := cfg.Matching.DateWindowDays
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Matching      MatchingConfig      `yaml:"matching"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatchingConfig holds matching engine tuning.
//
// Scores are on a 0-100 scale. AutoThreshold and SuggestThreshold are
// contractual: pairs scoring >= AutoThreshold are committed by auto-match,
// pairs in [SuggestThreshold, AutoThreshold) are only ever surfaced as
// suggestions. The weights are documented defaults, not business constants;
// they must keep an amount mismatch from ever reaching SuggestThreshold.
type MatchingConfig struct {
	AutoThreshold    float64 `yaml:"auto_threshold"`
	SuggestThreshold float64 `yaml:"suggest_threshold"`
	DateWindowDays   int     `yaml:"date_window_days"`
	AmountTolerance  string  `yaml:"amount_tolerance"` // decimal string, e.g. "0.005"
	AmountWeight     float64 `yaml:"amount_weight"`
	DateWeight       float64 `yaml:"date_weight"`
	ReferenceBonus   float64 `yaml:"reference_bonus"`
	DescriptionBonus float64 `yaml:"description_bonus"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("RECON_PORT", 8080),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", "reconcile.db"),
		},
		Matching: MatchingConfig{
			AutoThreshold:    getEnvFloat("RECON_AUTO_THRESHOLD", 90),
			SuggestThreshold: getEnvFloat("RECON_SUGGEST_THRESHOLD", 60),
			DateWindowDays:   getEnvInt("RECON_DATE_WINDOW_DAYS", 5),
			AmountTolerance:  getEnv("RECON_AMOUNT_TOLERANCE", "0.005"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills in zero-valued fields so a partial YAML file still
// yields a usable configuration.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconcile.db"
	}
	if c.Matching.AutoThreshold == 0 {
		c.Matching.AutoThreshold = 90
	}
	if c.Matching.SuggestThreshold == 0 {
		c.Matching.SuggestThreshold = 60
	}
	if c.Matching.DateWindowDays == 0 {
		c.Matching.DateWindowDays = 5
	}
	if c.Matching.AmountTolerance == "" {
		c.Matching.AmountTolerance = "0.005"
	}
	if c.Matching.AmountWeight == 0 {
		c.Matching.AmountWeight = 60
	}
	if c.Matching.DateWeight == 0 {
		c.Matching.DateWeight = 25
	}
	if c.Matching.ReferenceBonus == 0 {
		c.Matching.ReferenceBonus = 10
	}
	if c.Matching.DescriptionBonus == 0 {
		c.Matching.DescriptionBonus = 5
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}
