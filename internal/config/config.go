// Package config loads the catalog server configuration from .catalog.yml
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const ConfigFile = ".catalog.yml"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Environment variables that override file settings.
const (
	EnvSecret        = "CATALOG_SECRET"
	EnvStorageDriver = "CATALOG_STORAGE_DRIVER"
	EnvStorageDSN    = "CATALOG_STORAGE_DSN"
)

// Config holds the catalog configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Port       int      `yaml:"port"`
	Playground bool     `yaml:"playground"`
	Origins    []string `yaml:"cors_origins,omitempty"`
}

// StorageConfig selects the store. DSN is a file path for sqlite3 and a
// connection string for postgres; it is ignored for memory.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	Secret   string `yaml:"secret,omitempty"`
	TokenTTL string `yaml:"token_ttl,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       4000,
			Playground: true,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DSN:    "catalog.db",
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
	}
}

// Load reads configuration from path and applies environment overrides.
// Returns the default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSecret); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv(EnvStorageDSN); v != "" {
		c.Storage.DSN = v
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.DSN == "" {
		c.Storage.DSN = def.Storage.DSN
	}
}

// TTL returns the token lifetime. An empty or "0" value means tokens don't
// expire.
func (c *Config) TTL() (time.Duration, error) {
	if c.Auth.TokenTTL == "" || c.Auth.TokenTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid token_ttl %q: %w", c.Auth.TokenTTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid token_ttl %q: must not be negative", c.Auth.TokenTTL)
	}
	return d, nil
}

// Validate checks settings needed to run the server.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s needs a dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want %s, %s or %s)",
			c.Storage.Driver, DriverMemory, DriverSQLite, DriverPostgres)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is not set (use auth.secret in %s or %s)", ConfigFile, EnvSecret)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := c.TTL(); err != nil {
		return err
	}
	return nil
}
