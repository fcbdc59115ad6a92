package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/labelhub/internal/telemetry"
	"github.com/marmos91/labelhub/pkg/api"
	"github.com/marmos91/labelhub/pkg/origin/s3"
	"github.com/marmos91/labelhub/pkg/store/badger"
	"github.com/marmos91/labelhub/pkg/store/database"
)

// Config represents the labelhub server configuration.
//
// It covers:
//   - Logging and telemetry
//   - The REST API server and the Prometheus metrics server
//   - The record store (memory, badger or SQL database)
//   - The image origin (local directory or S3 bucket)
//   - The token allow-list file
//   - The progress dashboard and merge output
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (LABELHUB_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server configures the worker-facing REST API
	Server api.APIConfig `mapstructure:"server" yaml:"server"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Store selects where shards, progress and labels are persisted
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Origin selects where corpus images are read from
	Origin OriginConfig `mapstructure:"origin" yaml:"origin"`

	Tokens TokensConfig `mapstructure:"tokens" yaml:"tokens"`

	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`

	Merge MergeConfig `mapstructure:"merge" yaml:"merge"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// StoreType names a record store backend.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeBadger   StoreType = "badger"
	StoreTypeDatabase StoreType = "database"
)

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Type is one of memory, badger, database
	// Default: badger
	Type StoreType `mapstructure:"type" validate:"required,oneof=memory badger database" yaml:"type"`

	// Badger is used when Type is badger
	Badger badger.Config `mapstructure:"badger" yaml:"badger"`

	// Database is used when Type is database (SQLite or PostgreSQL)
	Database database.Config `mapstructure:"database" yaml:"database"`
}

// OriginType names an image origin backend.
type OriginType string

const (
	OriginTypeFS OriginType = "fs"
	OriginTypeS3 OriginType = "s3"
)

// OriginConfig selects and configures the image origin.
type OriginConfig struct {
	// Type is one of fs, s3
	// Default: fs
	Type OriginType `mapstructure:"type" validate:"required,oneof=fs s3" yaml:"type"`

	FS FSOriginConfig `mapstructure:"fs" yaml:"fs"`

	S3 s3.Config `mapstructure:"s3" yaml:"s3"`
}

// FSOriginConfig points at a local image directory.
type FSOriginConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// TokensConfig locates the token allow-list.
type TokensConfig struct {
	// File is the token file written by 'lhub tokens generate'
	File string `mapstructure:"file" validate:"required" yaml:"file"`

	// Watch reloads the allow-list when File changes
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// DashboardConfig controls the periodic progress table.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval between refreshes
	// Default: 2s
	Interval time.Duration `mapstructure:"interval" validate:"omitempty,gt=0" yaml:"interval"`

	// Output is stdout, stderr, or a file path
	// Default: stdout
	Output string `mapstructure:"output" yaml:"output"`
}

// MergeConfig controls where merged labels are written.
type MergeConfig struct {
	// OutputDir receives merged, conflict and consistent JSON files
	// Default: $XDG_DATA_HOME/labelhub/merge
	OutputDir string `mapstructure:"output_dir" validate:"required" yaml:"output_dir"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LABELHUB_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location. A missing file yields the
// default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  lhub config init\n\n"+
				"Or specify a custom config file:\n"+
				"  lhub <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  lhub config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold database passwords and S3 keys.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: LABELHUB_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("LABELHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "labelhub")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "labelhub")
}

// getDataDir returns $XDG_DATA_HOME/labelhub or ~/.local/share/labelhub.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "labelhub")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "labelhub")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// GetDataDir returns the data directory used for default store, token and
// merge paths.
func GetDataDir() string {
	return getDataDir()
}
