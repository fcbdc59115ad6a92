// Package database is a store.Store backed by a SQL database through GORM.
// SQLite is the single-node default; PostgreSQL lets several coordinators
// share one record set.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/store"
)

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file. Default: $XDG_DATA_HOME/labelhub/records.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config contains database configuration.
type Config struct {
	Type     DatabaseType   `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=sqlite postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.SQLite.Path = filepath.Join(dataDir, "labelhub", "records.db")
	}

	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// Record is one row of the key-value table.
type Record struct {
	Kind      string `gorm:"primaryKey;size:16"`
	Token     string `gorm:"primaryKey;size:64"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name independently of GORM's pluralisation.
func (Record) TableName() string { return "labelhub_records" }

// Store implements store.Store using GORM.
type Store struct {
	db     *gorm.DB
	config *Config

	mu     sync.RWMutex
	closed bool
}

// New opens the database described by config and migrates the schema.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL for concurrent readers; wait up to 5s on a locked database.
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if config.Type == DatabaseTypePostgres {
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	} else {
		// SQLite allows one writer; a single connection keeps writers queued
		// in-process instead of failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	logger.Info("Database store opened", logger.KeyStore, string(config.Type))
	return &Store{db: db, config: config}, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, kind store.Kind, token string) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if _, err := store.Key(kind, token); err != nil {
		return nil, err
	}

	var rec Record
	err := s.db.WithContext(ctx).
		Where("kind = ? AND token = ?", string(kind), token).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return rec.Value, nil
}

// Put implements store.Store as an upsert on (kind, token).
func (s *Store) Put(ctx context.Context, kind store.Kind, token string, value []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := store.Key(kind, token); err != nil {
		return err
	}

	rec := Record{
		Kind:      string(kind),
		Token:     token,
		Value:     append([]byte{}, value...),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, kind store.Kind, token string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := store.Key(kind, token); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("kind = ? AND token = ?", string(kind), token).
		Delete(&Record{}).Error
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, kind store.Kind) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, store.ErrUnknownKind
	}

	tokens := []string{}
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("kind = ?", string(kind)).
		Order("token ASC").
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Healthcheck implements store.Store.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

var _ store.Store = (*Store)(nil)
