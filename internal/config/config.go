// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Pricing contains pricing data source settings
	Pricing PricingConfig `json:"pricing" yaml:"pricing"`

	// Storage contains persistence settings
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Server contains HTTP API settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Export contains output settings
	Export ExportConfig `json:"export" yaml:"export"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// Region is the region code activated at startup
	Region string `json:"region" yaml:"region" env:"BUILDCOST_REGION"`

	// DataDir is a directory holding catalog.json and regions/*.json.
	// Empty means the embedded data set.
	DataDir string `json:"data_dir" yaml:"data_dir" env:"BUILDCOST_DATA_DIR"`

	// BaseURL fetches pricing documents over HTTP instead of from disk
	BaseURL string `json:"base_url" yaml:"base_url" env:"BUILDCOST_PRICING_URL"`

	// Timeout bounds a single HTTP fetch
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"BUILDCOST_PRICING_TIMEOUT"`

	// MaxRetries is the number of HTTP retries after the first attempt
	MaxRetries uint64 `json:"max_retries" yaml:"max_retries"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	// Path is the SQLite database file. Empty keeps state in memory.
	Path string `json:"path" yaml:"path" env:"BUILDCOST_DB_PATH"`

	// Prefix namespaces every persisted key
	Prefix string `json:"prefix" yaml:"prefix"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address string `json:"address" yaml:"address" env:"BUILDCOST_ADDR"`
}

// ExportConfig contains output settings
type ExportConfig struct {
	// Format is the default export format (text, csv, json)
	Format string `json:"format" yaml:"format"`

	// Locale controls number formatting in text output
	Locale string `json:"locale" yaml:"locale"`
}

// envOverrides holds the values that may only come from the environment
type envOverrides struct {
	LogLevel string `env:"BUILDCOST_LOG_LEVEL"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".buildcost", "state.db")

	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			Region:     "national",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			Path:   dbPath,
			Prefix: "buildcost:",
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Export: ExportConfig{
			Format: "text",
			Locale: "en-US",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or YAML file, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, config); err != nil {
			return nil, apperrors.Wrapf(apperrors.TypeConfig, err, "parse %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, apperrors.Wrapf(apperrors.TypeConfig, err, "read %s", path)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

// ApplyEnv overlays BUILDCOST_* environment variables
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return apperrors.Wrap(apperrors.TypeConfig, "parse env", err)
	}
	var extra envOverrides
	if err := env.Parse(&extra); err != nil {
		return apperrors.Wrap(apperrors.TypeConfig, "parse env", err)
	}
	if extra.LogLevel != "" {
		config.Logging.Level = extra.LogLevel
	}
	return nil
}

// Validate checks invariants the rest of the program relies on
func (c *Config) Validate() error {
	if c.Storage.Prefix == "" {
		return apperrors.New(apperrors.TypeConfig, "storage.prefix must not be empty")
	}
	if c.Pricing.Region == "" {
		return apperrors.New(apperrors.TypeConfig, "pricing.region must not be empty")
	}
	if c.Pricing.Timeout <= 0 {
		return apperrors.New(apperrors.TypeConfig, "pricing.timeout must be positive")
	}
	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
