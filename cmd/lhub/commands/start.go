package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/internal/telemetry"
	"github.com/marmos91/labelhub/pkg/api"
	"github.com/marmos91/labelhub/pkg/config"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/progress"
	"github.com/marmos91/labelhub/pkg/store/badger"
)

var (
	startDistribute bool
	pidFile         string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the labelhub server",
	Long: `Start the labelhub server in the foreground.

The server serves shards and images to workers, records their progress and
accepts their labels. With the dashboard enabled a progress table is
printed every interval.

Examples:
  # Start with the default configuration
  lhub start

  # Distribute the corpus first if it has not been distributed yet
  lhub start --distribute

  # Start with environment variable overrides
  LABELHUB_LOGGING_LEVEL=DEBUG lhub start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startDistribute, "distribute", false, "Distribute the corpus on startup when no distribution exists")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process id to this file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tcfg := cfg.Telemetry
	tcfg.ServiceName = "labelhub"
	tcfg.ServiceVersion = Version
	telemetryShutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(tcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	fmt.Println("labelhub - crowd-sourced image labeling")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", tcfg.Endpoint, "sample_rate", tcfg.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", tcfg.Profiling.Endpoint)
	}

	metricsResult := config.InitializeMetrics(cfg)

	b, err := openBackend(ctx, cfg, metricsResult)
	if err != nil {
		return err
	}
	defer b.Close()

	if startDistribute {
		res, err := b.svc.Distribute(ctx, false)
		switch {
		case err == nil:
			logger.Info("Corpus distributed on startup", "files", res.Files, "tokens", res.Tokens)
		case lherrors.IsConflict(err):
			logger.Info("Corpus already distributed, keeping existing shards")
		default:
			return fmt.Errorf("failed to distribute corpus: %w", err)
		}
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	g, gctx := errgroup.WithContext(ctx)

	apiServer := api.NewServer(cfg.Server, b.svc, metricsResult.API)
	g.Go(func() error { return apiServer.Start(gctx) })

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		g.Go(func() error { return metricsResult.Server.Start(gctx) })
	}

	if bs, ok := b.kv.(*badger.Store); ok && metricsResult.Badger != nil {
		go bs.RunMetrics(gctx, metricsResult.Badger, 30*time.Second)
	}

	var dashOut io.Writer
	if cfg.Dashboard.Enabled {
		w, closeOut, err := openDashboardOutput(cfg.Dashboard.Output)
		if err != nil {
			return err
		}
		defer closeOut()
		dashOut = w
	}
	// The dashboard tick also refreshes the progress gauges.
	if dashOut != nil || metricsResult.Progress != nil {
		dash := progress.NewDashboard(b.svc, dashOut, cfg.Dashboard.Interval, metricsResult.Progress)
		dash.Start(gctx)
		defer dash.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	serverDone := make(chan error, 1)
	go func() { serverDone <- g.Wait() }()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		select {
		case err := <-serverDone:
			if err != nil {
				logger.Error("Server shutdown error", logger.Err(err))
				return err
			}
		case <-time.After(cfg.ShutdownTimeout):
			return fmt.Errorf("shutdown timed out after %s", cfg.ShutdownTimeout)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

func openDashboardOutput(target string) (io.Writer, func(), error) {
	switch strings.ToLower(target) {
	case "", "stdout":
		return os.Stdout, func() {}, nil
	case "stderr":
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dashboard output %q: %w", target, err)
	}
	return f, func() { _ = f.Close() }, nil
}
