package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/internal/telemetry"
	"github.com/marmos91/rotdisk/pkg/api"
	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/config"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/rotdisk/pkg/metrics/prometheus"
)

var (
	pidFile     string
	watchConfig bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open the device and serve it over HTTP",
	Long: `Open the block device and serve it until interrupted.

The backing file is created (or grown) to the configured size and locked for
exclusive use. Sectors are served by the HTTP API; metrics, tracing and
profiling are started when enabled in the configuration.

On SIGINT or SIGTERM the API stops accepting requests, queued requests are
allowed to finish, and the backing file is synced and closed.

Examples:
  # Start with the stock 50MiB device at /tmp/rotdisk.img
  rotdisk start

  # Start with a custom config file
  rotdisk start --config /etc/rotdisk/config.yaml

  # Override settings through the environment
  ROTDISK_DEVICE_KEY=13 ROTDISK_LOGGING_LEVEL=DEBUG rotdisk start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file")
	startCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Reload the log level when the config file changes")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rotdisk",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rotdisk",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	metricsResult := config.InitializeMetrics(cfg)

	disk, err := openDisk(cfg, blockdev.WithMetrics(metricsResult.Device))
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			_ = closeDisk(cfg, disk)
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, disk)
		g.Go(func() error { return apiServer.Start(gctx) })
	} else {
		logger.Info("API server disabled")
	}

	if metricsResult.Server != nil {
		g.Go(func() error { return metricsResult.Server.Start(gctx) })
	}

	if source := getConfigSource(GetConfigFile()); watchConfig && source != "defaults" {
		g.Go(func() error {
			err := config.Watch(gctx, source, func(next *config.Config) {
				if logLevel == "" && next.Logging.Level != logger.GetLevel() {
					logger.Info("Log level changed", "from", logger.GetLevel(), "to", next.Logging.Level)
					logger.SetLevel(next.Logging.Level)
				}
			})
			if err != nil {
				logger.Warn("Config watcher stopped", logger.KeyError, err)
			}
			return nil
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Device is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case <-gctx.Done():
		logger.Warn("A server stopped unexpectedly, shutting down")
	}
	cancel()

	serveErr := g.Wait()

	if err := closeDisk(cfg, disk); err != nil {
		logger.Error("Device shutdown error", logger.KeyError, err)
		return errors.Join(serveErr, err)
	}
	logger.Info("Device closed")

	return serveErr
}
