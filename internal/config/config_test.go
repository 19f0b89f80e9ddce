package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TALLY_TEST_DIR", "/srv/tally")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "memory", input: ":memory:", expected: ":memory:"},
		{name: "tilde", input: "~", expected: home},
		{name: "tilde prefix", input: "~/data/tally.db", expected: filepath.Join(home, "data/tally.db")},
		{name: "env var", input: "$TALLY_TEST_DIR/tally.db", expected: "/srv/tally/tally.db"},
		{name: "braced env var", input: "${TALLY_TEST_DIR}/x", expected: "/srv/tally/x"},
		{name: "absolute", input: "/tmp/tally.db", expected: "/tmp/tally.db"},
		{name: "tilde in middle", input: "/tmp/~/x", expected: "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".local/share/tally/tally.db"), cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.True(t, cfg.Database.Seed)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, common.LogFormatConsole, cfg.Logging.Format)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".local/share/tally/snapshots"), cfg.Snapshot.Dir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "tally.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`database:
  path: ~/books.db
  seed: false
  busy_timeout: 250ms
logging:
  level: debug
  format: json
export:
  dir: /tmp/exports
`), 0600))

	t.Setenv("TALLY_LOGGING_LEVEL", "warn")

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books.db"), cfg.Database.Path)
	assert.False(t, cfg.Database.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.BusyTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, common.LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("database: [unterminated"), 0600))
	_, err := Load(broken)
	assert.Error(t, err)

	badLevel := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(badLevel, []byte("logging:\n  level: loud\n"), 0600))
	_, err = Load(badLevel)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Path: ":memory:"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{name: "missing path", mutate: func(c *Config) { c.Database.Path = "" }, target: common.ErrMissingConfig},
		{name: "negative timeout", mutate: func(c *Config) { c.Database.BusyTimeout = -time.Second }, target: common.ErrInvalidConfig},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, target: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TALLY_DATABASE_PATH=/tmp/from-env.db\n"), 0600))

	t.Setenv("TALLY_DATABASE_PATH", "")
	require.NoError(t, os.Unsetenv("TALLY_DATABASE_PATH"))

	require.NoError(t, LoadEnvFile(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "/tmp/from-env.db", os.Getenv("TALLY_DATABASE_PATH"))

	v := viper.New()
	Configure(v, filepath.Join(dir, "none.yaml"))
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.Path)
}
