// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
	Sync    SyncConfig    `yaml:"sync"`
}

// ServerConfig represents the HTTP API server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// StorageConfig represents the local playlist persistence configuration.
type StorageConfig struct {
	// Path to the sqlite database, or ":memory:" for ephemeral storage.
	Path string `yaml:"path" default:"utabako.db"`
}

// CatalogConfig represents the catalog collaborator configuration.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// How often the resolver snapshot is rebuilt from the catalog.
	RefreshIntervalSec int `yaml:"refresh_interval_sec" default:"300" validate:"gte=10"`
}

// SyncConfig represents the cloud playlist collaborator configuration.
type SyncConfig struct {
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	UserToken string `yaml:"user_token"`
	// How often playlists are reconciled with the cloud copy.
	IntervalSec int `yaml:"interval_sec" default:"60" validate:"gte=5"`
	// Request budget towards the cloud collaborator.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" default:"5" validate:"gt=0"`
}

// Enabled reports whether cloud sync is configured at all.
func (c *SyncConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Sync.Enabled() && c.Sync.UserToken == "" {
		return errors.New("sync.user_token is required when sync.base_url is set")
	}

	return nil
}

// overrideFromEnv applies environment variable overrides for sensitive
// fields.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("UTABAKO_SYNC_TOKEN"); v != "" {
		c.Sync.UserToken = v
	}
	if v := os.Getenv("UTABAKO_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("UTABAKO_SYNC_URL"); v != "" {
		c.Sync.BaseURL = v
	}
}
