// Package metrics holds the Prometheus registry and the /metrics HTTP server.
//
// Metrics are opt-in. Until InitRegistry is called, IsEnabled reports false
// and the constructors in this package return nil, which instrumented code
// treats as "do not record".
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	regMu    sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the private registry with Go runtime and process
// collectors. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	regMu.Lock()
	registry = reg
	regMu.Unlock()
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	regMu.RLock()
	defer regMu.RUnlock()
	return registry != nil
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	regMu.RLock()
	defer regMu.RUnlock()
	return registry
}

// Reset disables metrics. Used by tests.
func Reset() {
	regMu.Lock()
	registry = nil
	regMu.Unlock()
}
