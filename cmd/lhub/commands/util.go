package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/config"
	"github.com/marmos91/labelhub/pkg/coordinator"
	"github.com/marmos91/labelhub/pkg/origin"
	"github.com/marmos91/labelhub/pkg/store"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads --config and initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backend is a coordinator wired to its store and origin.
type backend struct {
	svc    *coordinator.Service
	kv     store.Store
	origin origin.Origin
}

func (b *backend) Close() {
	if err := b.kv.Close(); err != nil {
		logger.Warn("Failed to close record store", logger.Err(err))
	}
}

// openBackend builds the coordinator the way start does. m may be nil.
//
// Admin commands call it while the server is stopped: the badger store
// holds an exclusive directory lock.
func openBackend(ctx context.Context, cfg *config.Config, m *config.MetricsResult) (*backend, error) {
	if m == nil {
		m = &config.MetricsResult{}
	}

	kv, err := config.CreateStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	src, err := config.CreateOrigin(ctx, cfg.Origin, m.Origin)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create image origin: %w", err)
	}

	tokens, err := config.LoadTokens(ctx, cfg.Tokens)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	svc, err := coordinator.New(coordinator.Config{
		Records: store.NewRecords(kv),
		Tokens:  tokens,
		Origin:  src,
		Metrics: m.Coordinator,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	if err := svc.Restore(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &backend{svc: svc, kv: kv, origin: src}, nil
}
