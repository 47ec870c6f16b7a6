// Package config loads the encheres configuration from defaults, an
// optional YAML file, a .env file and ENCHERES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ENCHERES_DATABASE_PATH.
const EnvPrefix = "ENCHERES"

// DirName is the per-user state directory under $HOME.
const DirName = ".encheres"

// Config represents the encheres configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Sentry   SentryConfig   `mapstructure:"sentry" yaml:"sentry"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`

	location *time.Location
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// PipelineConfig tunes batch processing.
type PipelineConfig struct {
	Workers  int    `mapstructure:"workers" yaml:"workers"`   // fan-out across licitor IDs
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // defines "today"
}

// ProgressConfig locates the progress file and the cancel flag.
type ProgressConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// SentryConfig enables error reporting.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. When empty, config.yaml is searched in
	// the working directory, then in ~/.encheres.
	File string
	// Home overrides the user home directory.
	Home string
	// EnvFile is loaded into the environment before overrides are read.
	// A missing file is not an error. Defaults to ".env".
	EnvFile string
}

func setDefaults(v *viper.Viper, home string) {
	base := filepath.Join(home, DirName)
	v.SetDefault("database.path", filepath.Join(base, "encheres.db"))
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.timezone", "Europe/Paris")
	v.SetDefault("progress.dir", filepath.Join(base, "run"))
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load resolves the configuration and validates it.
func Load(opts Options) (*Config, error) {
	home := opts.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		home = h
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, home)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, DirName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Database.Path = expandHome(cfg.Database.Path, home)
	cfg.Progress.Dir = expandHome(cfg.Progress.Dir, home)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile, home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the closed sets and bounds of the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("invalid config: database.path is required")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("invalid config: database.busy_timeout_ms must not be negative")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("invalid config: pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return fmt.Errorf("invalid config: pipeline.timezone: %w", err)
	}
	c.location = loc

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: logging.level %q (want debug, info, warn or error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: logging.format %q (want text or json)", c.Logging.Format)
	}
	return nil
}

// Location is the time zone that defines the processing date.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// SaveConfig writes cfg as config.yaml in dir.
func SaveConfig(dir string, cfg *Config) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// DefaultDir returns ~/.encheres.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
