package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("Expected default write timeout 10s, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_StoreAndPaths(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != StoreTypeBadger {
		t.Errorf("Expected default store 'badger', got %q", cfg.Store.Type)
	}
	if want := filepath.Join(dataHome, "labelhub", "records"); cfg.Store.Badger.Path != want {
		t.Errorf("Expected badger path %q, got %q", want, cfg.Store.Badger.Path)
	}
	if want := filepath.Join(dataHome, "labelhub", "tokens.txt"); cfg.Tokens.File != want {
		t.Errorf("Expected token file %q, got %q", want, cfg.Tokens.File)
	}
	if want := filepath.Join(dataHome, "labelhub", "merge"); cfg.Merge.OutputDir != want {
		t.Errorf("Expected merge dir %q, got %q", want, cfg.Merge.OutputDir)
	}
	if cfg.Origin.Type != OriginTypeFS {
		t.Errorf("Expected default origin 'fs', got %q", cfg.Origin.Type)
	}
}

func TestApplyDefaults_InMemoryBadgerHasNoPath(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Type: StoreTypeBadger}}
	cfg.Store.Badger.InMemory = true
	ApplyDefaults(cfg)

	if cfg.Store.Badger.Path != "" {
		t.Errorf("Expected in-memory badger to keep an empty path, got %q", cfg.Store.Badger.Path)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry to stay disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default endpoint 'localhost:4317', got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.ServiceName != "labelhub" {
		t.Errorf("Expected service name 'labelhub', got %q", cfg.Telemetry.ServiceName)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("Expected default profile types")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "stderr",
		},
		ShutdownTimeout: 10 * time.Second,
		Dashboard:       DashboardConfig{Interval: 5 * time.Second},
		Store:           StoreConfig{Type: StoreTypeMemory},
	}
	cfg.Server.Port = 9000

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json' preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected output 'stderr' preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000 preserved, got %d", cfg.Server.Port)
	}
	if cfg.Dashboard.Interval != 5*time.Second {
		t.Errorf("Expected interval 5s preserved, got %v", cfg.Dashboard.Interval)
	}
	if cfg.Store.Badger.Path != "" {
		t.Errorf("Expected no badger path for the memory store, got %q", cfg.Store.Badger.Path)
	}
}
