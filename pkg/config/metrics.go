package config

import (
	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/metrics"
)

// MetricsResult holds what InitializeMetrics set up. Both fields are nil
// when metrics are disabled.
type MetricsResult struct {
	Server *metrics.Server
	Device blockdev.Metrics
}

// InitializeMetrics creates the registry, the device metrics and the
// /metrics server when metrics are enabled. The server is not started.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics disabled")
		return &MetricsResult{}
	}

	reg := metrics.InitRegistry()
	logger.Info("Metrics enabled", "port", cfg.Metrics.Port)

	return &MetricsResult{
		Server: metrics.NewServer(cfg.Metrics.Port, reg),
		Device: metrics.NewDeviceMetrics(),
	}
}
