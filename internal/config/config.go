// Package config loads the dashboard configuration from BIKESHARE_* environment
// variables, optionally overlaid by a YAML file named in BIKESHARE_CONFIG_FILE.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"bikeshare-dashboard/pkg/database"
)

// EnvPrefix is the prefix of every configuration environment variable
const EnvPrefix = "BIKESHARE"

// FileEnvVar names the optional YAML overlay
const FileEnvVar = EnvPrefix + "_CONFIG_FILE"

// Dataset sources
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceDatabase = "database"
)

// Database drivers
const (
	DriverPostgres = database.DriverPostgres
	DriverSQLite   = database.DriverSQLite
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DB"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOG"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true" default:"0.0.0.0"`
	Port            int           `yaml:"port" split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" default:"30s"`
}

// DatabaseConfig contains SQL store configuration
// Path is only used by the sqlite3 driver.
// Leaf keys come from split_words only; an envconfig tag would also match the bare name (PATH, USER).
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" split_words:"true" default:"postgres"`
	Host            string        `yaml:"host" split_words:"true" default:"localhost"`
	Port            int           `yaml:"port" split_words:"true" default:"5432"`
	User            string        `yaml:"user" split_words:"true" default:"bikeshare"`
	Password        string        `yaml:"password" split_words:"true"`
	Name            string        `yaml:"name" split_words:"true" default:"bikeshare"`
	SSLMode         string        `yaml:"ssl_mode" split_words:"true" default:"disable"`
	Path            string        `yaml:"path" split_words:"true" default:"bikeshare.db"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true" default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true" default:"1m"`
}

// DatasetConfig selects where the server loads the rental table from
type DatasetConfig struct {
	Source string `yaml:"source" split_words:"true" default:"csv"`
	Path   string `yaml:"path" split_words:"true" default:"data/day.csv"`
	Sheet  string `yaml:"sheet" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" default:"info"`
}

// RateLimitConfig contains API rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true" default:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" default:"50"`
	Burst   int     `yaml:"burst" split_words:"true" default:"100"`
}

// TracingConfig toggles the stdout span exporter
type TracingConfig struct {
	Enabled bool `yaml:"enabled" split_words:"true" default:"false"`
}

// LoadConfig reads env vars and then overlays the YAML file, if one is configured.
// Keys present in the file win over env values and defaults.
func LoadConfig() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.normalize()
	return &cfg, nil
}

// overlayFile decodes the YAML file onto cfg; absent keys keep their current value
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Dataset.Source = strings.ToLower(strings.TrimSpace(c.Dataset.Source))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate checks the configuration for values the executables cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("postgres requires host and database name")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite3 requires a database path")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("connection pool sizes must be non-negative")
	}

	switch c.Dataset.Source {
	case SourceCSV, SourceXLSX:
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset source %s requires a path", c.Dataset.Source)
		}
	case SourceDatabase:
	default:
		return fmt.Errorf("unsupported dataset source %q", c.Dataset.Source)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Logging.Level)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive rps and burst")
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Connection converts the database section into a pool configuration
func (d DatabaseConfig) Connection() database.Config {
	return database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		Path:            d.Path,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}
