package config

import (
	"strings"
	"time"

	"github.com/marmos91/rotdisk/internal/bytesize"
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	cfg.API.ApplyDefaults()
	applyDeviceDefaults(&cfg.Device)
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

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
// Port defaults to 9090 only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyDeviceDefaults sets the stock 50MiB, key 3 device.
func applyDeviceDefaults(cfg *DeviceConfig) {
	if cfg.Path == "" {
		cfg.Path = blockdev.DefaultPath
	}
	if cfg.Size == 0 {
		cfg.Size = bytesize.ByteSize(blockdev.DefaultCapacity)
	}
	if cfg.SectorSize == 0 {
		cfg.SectorSize = blockdev.SectorSize
	}
	if cfg.Key == nil {
		key := blockdev.DefaultKey
		cfg.Key = &key
	}
	if cfg.Partitions == 0 {
		cfg.Partitions = blockdev.DefaultPartitions
	}
	if cfg.FileMode == "" {
		cfg.FileMode = "0600"
	}
	if cfg.Workers == 0 {
		cfg.Workers = blockdev.DefaultWorkers
	}
	if cfg.QueueDepth == 0 {
		cfg.QueueDepth = blockdev.DefaultQueueDepth
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
