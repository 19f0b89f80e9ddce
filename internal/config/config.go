package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/common"
)

// EnvPrefix namespaces environment overrides, e.g. TALLY_DATABASE_PATH.
const EnvPrefix = "TALLY"

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Export   ExportConfig   `mapstructure:"export"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	Seed        bool          `mapstructure:"seed"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExportConfig controls table exports.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// SnapshotConfig controls database snapshots.
type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(DataDir(), "tally.db"))
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.seed", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", common.LogFormatConsole)
	v.SetDefault("export.dir", ".")
	v.SetDefault("snapshot.dir", filepath.Join(DataDir(), "snapshots"))
}

// Configure prepares v to read cfgFile, or config.yaml from the working
// directory and ConfigDir when cfgFile is empty, with TALLY_ environment
// overrides.
func Configure(v *viper.Viper, cfgFile string) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadInConfig reads the config file. A missing file is not an error.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// LoadEnvFile loads variables from the given .env files, or ./.env when
// none are named. Missing files are ignored and variables already set in
// the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// FromViper decodes v into a Config and expands every path.
func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	c.Database.Path = ExpandPath(c.Database.Path)
	c.Export.Dir = ExpandPath(c.Export.Dir)
	c.Snapshot.Dir = ExpandPath(c.Snapshot.Dir)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads configuration into a fresh viper instance.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	Configure(v, cfgFile)
	if err := ReadInConfig(v); err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// Validate checks the values a command cannot run without.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("%w: database.busy_timeout must not be negative", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", common.LogFormatConsole, common.LogFormatJSON, "text":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
