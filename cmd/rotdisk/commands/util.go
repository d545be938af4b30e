package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/config"
)

// loadConfig loads the configuration and applies the --log-level override.
// A missing file is not an error; the stock device is used.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, ok := logger.ParseLevel(logLevel); !ok {
			return nil, fmt.Errorf("invalid log level %q", logLevel)
		}
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

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

// initCLILogger keeps stdout for command output by moving stdout logging to
// stderr.
func initCLILogger(cfg *config.Config) error {
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	return InitLogger(cfg)
}

// openDisk opens the configured device.
func openDisk(cfg *config.Config, opts ...blockdev.Option) (*blockdev.Disk, error) {
	bc, err := cfg.ToBlockdev()
	if err != nil {
		return nil, err
	}
	return blockdev.Open(bc, opts...)
}

// closeDisk shuts disk down within the configured timeout.
func closeDisk(cfg *config.Config, disk *blockdev.Disk) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return disk.Shutdown(ctx)
}

// cliContext tags ctx so dispatcher logs show the CLI as the request source.
func cliContext(ctx context.Context, op blockdev.Op, sector uint64) context.Context {
	return logger.WithContext(ctx, logger.NewLogContext("", op.String(), sector).WithSource("cli"))
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
