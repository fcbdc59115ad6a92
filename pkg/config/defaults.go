package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/labelhub/internal/telemetry"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store/database"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	cfg.Server.ApplyDefaults()
	applyMetricsDefaults(&cfg.Metrics)
	applyStoreDefaults(&cfg.Store)
	applyOriginDefaults(&cfg.Origin)
	applyTokensDefaults(&cfg.Tokens)
	applyDashboardDefaults(&cfg.Dashboard)
	applyMergeDefaults(&cfg.Merge)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *telemetry.Config) {
	def := telemetry.DefaultConfig()

	if cfg.ServiceName == "" {
		cfg.ServiceName = def.ServiceName
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = def.ServiceVersion
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = def.Profiling.Endpoint
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = def.Profiling.ProfileTypes
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the port only when metrics are on.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = StoreTypeBadger
	}
	if cfg.Type == StoreTypeBadger && cfg.Badger.Path == "" && !cfg.Badger.InMemory {
		cfg.Badger.Path = filepath.Join(getDataDir(), "records")
	}
	if cfg.Type == StoreTypeDatabase {
		cfg.Database.ApplyDefaults()
	}
}

func applyOriginDefaults(cfg *OriginConfig) {
	if cfg.Type == "" {
		cfg.Type = OriginTypeFS
	}
	if cfg.Type == OriginTypeFS && cfg.FS.Path == "" {
		cfg.FS.Path = "images"
	}
}

func applyTokensDefaults(cfg *TokensConfig) {
	if cfg.File == "" {
		cfg.File = filepath.Join(getDataDir(), "tokens.txt")
	}
}

func applyDashboardDefaults(cfg *DashboardConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = progress.DefaultInterval
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMergeDefaults(cfg *MergeConfig) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(getDataDir(), "merge")
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Used to generate sample configuration files and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Dashboard: DashboardConfig{Enabled: true},
		Store: StoreConfig{
			Database: database.Config{Type: database.DatabaseTypeSQLite},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
