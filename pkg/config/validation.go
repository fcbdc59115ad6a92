package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules that depend on which
// backend is selected.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		return fmt.Errorf("metrics.port and server.port must differ (both %d)", cfg.Server.Port)
	}

	switch cfg.Store.Type {
	case StoreTypeBadger:
		if cfg.Store.Badger.Path == "" && !cfg.Store.Badger.InMemory {
			return fmt.Errorf("store.badger.path is required for the badger store")
		}
	case StoreTypeDatabase:
		if err := cfg.Store.Database.Validate(); err != nil {
			return fmt.Errorf("store.database: %w", err)
		}
	}

	switch cfg.Origin.Type {
	case OriginTypeFS:
		if cfg.Origin.FS.Path == "" {
			return fmt.Errorf("origin.fs.path is required for the fs origin")
		}
	case OriginTypeS3:
		if cfg.Origin.S3.Bucket == "" {
			return fmt.Errorf("origin.s3.bucket is required for the s3 origin")
		}
	}

	return nil
}
