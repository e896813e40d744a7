package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Server.Port)
	}
	if !cfg.Server.Playground {
		t.Error("Playground = false, want true")
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}
	if cfg.Storage.DSN != "catalog.db" {
		t.Errorf("DSN = %q, want catalog.db", cfg.Storage.DSN)
	}
	if cfg.Auth.Secret != "" {
		t.Errorf("Secret = %q, want empty", cfg.Auth.Secret)
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Port = %d, want default 4000", cfg.Server.Port)
	}
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)

	cfg := Default()
	cfg.Server.Port = 8080
	cfg.Server.Origins = []string{"http://localhost:3000"}
	cfg.Storage.Driver = DriverPostgres
	cfg.Storage.DSN = "postgres://localhost/catalog"
	cfg.Auth.Secret = "s3cret"
	cfg.Auth.TokenTTL = "1h"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", loaded.Server.Port)
	}
	if len(loaded.Server.Origins) != 1 || loaded.Server.Origins[0] != "http://localhost:3000" {
		t.Errorf("Origins = %v", loaded.Server.Origins)
	}
	if loaded.Storage.Driver != DriverPostgres || loaded.Storage.DSN != "postgres://localhost/catalog" {
		t.Errorf("Storage = %+v", loaded.Storage)
	}
	if loaded.Auth.Secret != "s3cret" {
		t.Errorf("Secret = %q, want s3cret", loaded.Auth.Secret)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	content := `auth:
  secret: abc
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.DSN != "catalog.db" {
		t.Errorf("Storage = %+v, want sqlite3 defaults", cfg.Storage)
	}
	if cfg.Auth.TokenTTL != "24h" {
		t.Errorf("TokenTTL = %q, want 24h", cfg.Auth.TokenTTL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() succeeded on invalid YAML, want error")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvSecret, "from-env")
	t.Setenv(EnvStorageDriver, DriverMemory)
	t.Setenv(EnvStorageDSN, "")

	path := filepath.Join(t.TempDir(), ConfigFile)
	content := `auth:
  secret: from-file
storage:
  driver: postgres
  dsn: postgres://x
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Errorf("Secret = %q, want from-env", cfg.Auth.Secret)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Driver = %q, want memory", cfg.Storage.Driver)
	}
	// Empty variables don't override
	if cfg.Storage.DSN != "postgres://x" {
		t.Errorf("DSN = %q, want postgres://x", cfg.Storage.DSN)
	}
}

func TestTTL(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"24h", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"-1h", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.TokenTTL = tt.value
			got, err := cfg.TTL()
			if (err != nil) != tt.wantErr {
				t.Fatalf("TTL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Auth.Secret = "s3cret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory without dsn", func(c *Config) { c.Storage.Driver = DriverMemory; c.Storage.DSN = "" }, ""},
		{"missing secret", func(c *Config) { c.Auth.Secret = "" }, "secret"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongodb" }, "unknown storage driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres; c.Storage.DSN = "" }, "dsn"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"bad ttl", func(c *Config) { c.Auth.TokenTTL = "forever" }, "token_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
