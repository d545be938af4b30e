package metrics

import (
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// NewDeviceMetrics returns the Prometheus-backed device metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called). Pass the
// result straight to blockdev.WithMetrics; a nil value records nothing.
//
//	metrics.InitRegistry()
//	disk, err := blockdev.Open(cfg, blockdev.WithMetrics(metrics.NewDeviceMetrics()))
func NewDeviceMetrics() blockdev.Metrics {
	if !IsEnabled() || newPrometheusDeviceMetrics == nil {
		return nil
	}
	return newPrometheusDeviceMetrics()
}

// newPrometheusDeviceMetrics is set by pkg/metrics/prometheus in its init so
// that this package does not import the implementation.
var newPrometheusDeviceMetrics func() blockdev.Metrics

// RegisterDeviceMetricsConstructor registers the device metrics constructor.
func RegisterDeviceMetricsConstructor(constructor func() blockdev.Metrics) {
	newPrometheusDeviceMetrics = constructor
}
