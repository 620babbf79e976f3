package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	FileEnvVar,
	"BIKESHARE_SERVER_PORT", "BIKESHARE_SERVER_READ_TIMEOUT",
	"BIKESHARE_DB_DRIVER", "BIKESHARE_DB_PATH", "BIKESHARE_DB_NAME",
	"BIKESHARE_DATASET_SOURCE", "BIKESHARE_DATASET_PATH",
	"BIKESHARE_LOG_LEVEL", "BIKESHARE_RATE_LIMIT_RPS", "BIKESHARE_TRACING_ENABLED",
	"BIKESHARE_DB_SSL_MODE", "BIKESHARE_DB_MAX_OPEN_CONNS", "BIKESHARE_SERVER_SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, SourceCSV, cfg.Dataset.Source)
	assert.Equal(t, "data/day.csv", cfg.Dataset.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50.0, cfg.RateLimit.RPS)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_IgnoresUnprefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")
	t.Setenv("USER", "root")
	t.Setenv("HOST", "somebox")
	t.Setenv("PORT", "3000")
	t.Setenv("NAME", "other")
	t.Setenv("LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data/day.csv", cfg.Dataset.Path)
	assert.Equal(t, "bikeshare.db", cfg.Database.Path)
	assert.Equal(t, "bikeshare", cfg.Database.User)
	assert.Equal(t, "bikeshare", cfg.Database.Name)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_SplitWordKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIKESHARE_DB_NAME", "rentals")
	t.Setenv("BIKESHARE_DB_SSL_MODE", "require")
	t.Setenv("BIKESHARE_DB_MAX_OPEN_CONNS", "7")
	t.Setenv("BIKESHARE_SERVER_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("BIKESHARE_RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "rentals", cfg.Database.Name)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
}

func TestLoadConfig_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIKESHARE_SERVER_PORT", "9090")
	t.Setenv("BIKESHARE_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("BIKESHARE_DB_DRIVER", "SQLite3")
	t.Setenv("BIKESHARE_DB_PATH", "/tmp/rentals.db")
	t.Setenv("BIKESHARE_DATASET_SOURCE", "database")
	t.Setenv("BIKESHARE_LOG_LEVEL", "DEBUG")
	t.Setenv("BIKESHARE_TRACING_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/rentals.db", cfg.Database.Path)
	assert.Equal(t, SourceDatabase, cfg.Dataset.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIKESHARE_SERVER_PORT", "not-a-port")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIKESHARE_SERVER_PORT", "9090")
	t.Setenv("BIKESHARE_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "bikeshare.yaml")
	content := `
server:
  port: 7070
  write_timeout: 45s
dataset:
  source: xlsx
  path: data/day.xlsx
  sheet: day
rate_limit:
  rps: 5
  burst: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(FileEnvVar, path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "file wins over env")
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "absent keys keep defaults")
	assert.Equal(t, "warn", cfg.Logging.Level, "absent keys keep env values")
	assert.Equal(t, SourceXLSX, cfg.Dataset.Source)
	assert.Equal(t, "day", cfg.Dataset.Sheet)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(FileEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"sqlite without path", func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.Path = ""
		}, true},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }, true},
		{"negative pool", func(c *Config) { c.Database.MaxIdleConns = -1 }, true},
		{"unknown source", func(c *Config) { c.Dataset.Source = "parquet" }, true},
		{"csv without path", func(c *Config) { c.Dataset.Path = "" }, true},
		{"database source ignores path", func(c *Config) {
			c.Dataset.Source = SourceDatabase
			c.Dataset.Path = ""
		}, false},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"zero rps", func(c *Config) { c.RateLimit.RPS = 0 }, true},
		{"disabled limiter ignores rps", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.RPS = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConnection(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIKESHARE_DB_DRIVER", "sqlite3")
	t.Setenv("BIKESHARE_DB_PATH", "/tmp/rentals.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	conn := cfg.Database.Connection()
	assert.Equal(t, DriverSQLite, conn.Driver)
	assert.Equal(t, "/tmp/rentals.db", conn.Path)
	assert.Equal(t, 25, conn.MaxOpenConns)

	dsn, err := conn.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "/tmp/rentals.db")
}
