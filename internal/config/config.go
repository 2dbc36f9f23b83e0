package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDocumentKey is the blob key the training document is stored under.
const DefaultDocumentKey = "replift_data"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Timezone  string          `yaml:"timezone"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Key      string         `yaml:"key"`
	Postgres DatabaseConfig `yaml:"postgres"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the configured timezone. An empty value means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RequireAPIKey reports an error when no API key is configured. Only the
// HTTP server needs one; the admin CLI and the MCP server run without it.
func (c *Config) RequireAPIKey() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REPLIFT_ and underscore-separated paths:
//
//	REPLIFT_SERVER_HOST, REPLIFT_SERVER_PORT,
//	REPLIFT_STORAGE_DRIVER, REPLIFT_STORAGE_PATH, REPLIFT_STORAGE_KEY,
//	REPLIFT_DB_HOST, REPLIFT_DB_PORT, REPLIFT_DB_NAME,
//	REPLIFT_DB_USER, REPLIFT_DB_PASSWORD, REPLIFT_DB_SSLMODE,
//	REPLIFT_AUTH_API_KEY, REPLIFT_LOG_LEVEL, REPLIFT_LOG_FILE,
//	REPLIFT_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPLIFT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REPLIFT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REPLIFT_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("REPLIFT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("REPLIFT_STORAGE_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("REPLIFT_DB_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("REPLIFT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("REPLIFT_DB_NAME"); v != "" {
		cfg.Storage.Postgres.Name = v
	}
	if v := os.Getenv("REPLIFT_DB_USER"); v != "" {
		cfg.Storage.Postgres.User = v
	}
	if v := os.Getenv("REPLIFT_DB_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("REPLIFT_DB_SSLMODE"); v != "" {
		cfg.Storage.Postgres.SSLMode = v
	}
	if v := os.Getenv("REPLIFT_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("REPLIFT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REPLIFT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("REPLIFT_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverFile
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = DefaultDocumentKey
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "replift"
	}
	if cfg.Tailscale.StateDir == "" {
		cfg.Tailscale.StateDir = "tsnet"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverPostgres:
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if pg.Port == 0 {
			return fmt.Errorf("storage.postgres.port is required")
		}
		if pg.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
		if pg.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of file, sqlite, postgres", c.Storage.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}
