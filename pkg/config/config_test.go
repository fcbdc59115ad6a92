package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "info"

store:
  type: badger
  badger:
    path: "`+yamlSafePath(tmpDir)+`/records"

origin:
  type: fs
  fs:
    path: "`+yamlSafePath(tmpDir)+`/images"

tokens:
  file: "`+yamlSafePath(tmpDir)+`/tokens.txt"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Dashboard.Interval != 2*time.Second {
		t.Errorf("Expected default dashboard interval 2s, got %v", cfg.Dashboard.Interval)
	}
	if cfg.Store.Badger.Path != filepath.Join(tmpDir, "records") && cfg.Store.Badger.Path != yamlSafePath(tmpDir)+"/records" {
		t.Errorf("Expected badger path to be kept, got %q", cfg.Store.Badger.Path)
	}
}

func TestLoad_Durations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
shutdown_timeout: 5s

server:
  read_timeout: 1m

dashboard:
  enabled: true
  interval: 500ms

origin:
  fs:
    path: "`+yamlSafePath(tmpDir)+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.ReadTimeout != time.Minute {
		t.Errorf("Expected read_timeout 1m, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Dashboard.Interval != 500*time.Millisecond {
		t.Errorf("Expected dashboard interval 500ms, got %v", cfg.Dashboard.Interval)
	}
}

func TestLoad_DatabaseStore(t *testing.T) {
	configPath := writeConfig(t, `
store:
  type: database
  database:
    type: postgres
    postgres:
      host: db.internal
      database: labelhub
      user: labelhub
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Type != StoreTypeDatabase {
		t.Fatalf("Expected database store, got %q", cfg.Store.Type)
	}
	if cfg.Store.Database.Postgres.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Store.Database.Postgres.Port)
	}
	if cfg.Store.Database.Postgres.SSLMode != "disable" {
		t.Errorf("Expected default sslmode 'disable', got %q", cfg.Store.Database.Postgres.SSLMode)
	}
}

func TestLoad_S3OriginRequiresBucket(t *testing.T) {
	configPath := writeConfig(t, `
origin:
  type: s3
  s3:
    region: eu-west-1
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for s3 origin without bucket")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A missing file yields the defaults so the server can start for a
	// quick local run.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("LABELHUB_LOGGING_LEVEL", "ERROR")
	t.Setenv("LABELHUB_SERVER_PORT", "9191")

	configPath := writeConfig(t, `
logging:
  level: "INFO"

server:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Expected port 9191 from env var, got %d", cfg.Server.Port)
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Origin.FS.Path = "/srv/corpus"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved config missing: %v", err)
	}
	if info.Mode().Perm() != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", loaded.Logging.Level)
	}
	if loaded.Origin.FS.Path != "/srv/corpus" {
		t.Errorf("Expected origin path '/srv/corpus', got %q", loaded.Origin.FS.Path)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if filepath.Base(GetConfigDir()) != "labelhub" {
		t.Errorf("Expected directory name 'labelhub', got %q", filepath.Base(GetConfigDir()))
	}
}

func TestGetDataDir(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	if GetDataDir() != filepath.Join(dataHome, "labelhub") {
		t.Errorf("Expected data dir under XDG_DATA_HOME, got %q", GetDataDir())
	}
}
