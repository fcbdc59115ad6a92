package config

import (
	"context"
	"fmt"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/origin"
	"github.com/marmos91/labelhub/pkg/origin/fs"
	"github.com/marmos91/labelhub/pkg/origin/s3"
	"github.com/marmos91/labelhub/pkg/store"
	"github.com/marmos91/labelhub/pkg/store/badger"
	"github.com/marmos91/labelhub/pkg/store/database"
	"github.com/marmos91/labelhub/pkg/store/memory"
	"github.com/marmos91/labelhub/pkg/token"
)

// CreateStore opens the record store selected by cfg.Type.
func CreateStore(cfg StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case StoreTypeMemory:
		logger.Warn("Using the in-memory store: shards, progress and labels are lost on restart")
		return memory.New(), nil

	case StoreTypeBadger:
		s, err := badger.New(cfg.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		logger.Info("Record store opened", "type", "badger", "path", cfg.Badger.Path)
		return s, nil

	case StoreTypeDatabase:
		dbCfg := cfg.Database
		s, err := database.New(&dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open database store: %w", err)
		}
		logger.Info("Record store opened", "type", "database", "driver", dbCfg.Type)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// CreateOrigin builds the image origin selected by cfg.Type and instruments
// it with spans and m. m may be nil.
func CreateOrigin(ctx context.Context, cfg OriginConfig, m origin.Metrics) (origin.Origin, error) {
	var (
		o   origin.Origin
		err error
	)

	switch cfg.Type {
	case OriginTypeFS:
		o, err = fs.New(cfg.FS.Path)
	case OriginTypeS3:
		o, err = s3.NewFromConfig(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown origin type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return origin.Instrument(o, string(cfg.Type), m), nil
}

// LoadTokens reads the allow-list named by cfg.File and, when cfg.Watch is
// set, follows the file until ctx is done.
func LoadTokens(ctx context.Context, cfg TokensConfig) (*token.AllowList, error) {
	list, err := token.LoadAllowList(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load token file %s: %w", cfg.File, err)
	}
	logger.Info("Token allow-list loaded", "file", cfg.File, "tokens", list.Len())

	if cfg.Watch {
		if err := list.Watch(ctx); err != nil {
			return nil, err
		}
		logger.Debug("Watching token file", "file", cfg.File)
	}
	return list, nil
}
