// Package prometheus implements blockdev.Metrics on top of client_golang.
// Importing it registers the constructor used by metrics.NewDeviceMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/rotdisk/pkg/blockdev"
	"github.com/marmos91/rotdisk/pkg/metrics"
)

func init() {
	metrics.RegisterDeviceMetricsConstructor(NewDeviceMetrics)
}

// deviceMetrics is the Prometheus implementation of blockdev.Metrics.
type deviceMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestBytes    *prometheus.CounterVec
	queueWait       prometheus.Histogram
	queueDepth      prometheus.Gauge
	pins            prometheus.Gauge
	rejected        *prometheus.CounterVec
}

// NewDeviceMetrics creates device metrics on the shared registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDeviceMetrics() blockdev.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newDeviceMetrics(metrics.GetRegistry())
}

func newDeviceMetrics(reg prometheus.Registerer) *deviceMetrics {
	f := promauto.With(reg)

	return &deviceMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotdisk_requests_total",
				Help: "Completed block requests by operation and status",
			},
			[]string{"op", "status"}, // status: ok or a failure kind
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rotdisk_request_duration_milliseconds",
				Help: "Time spent executing a block request, excluding queue wait",
				Buckets: []float64{
					0.05, // 50us - single cached sector
					0.1,
					0.5,
					1,
					5,
					10,
					50,
					100,
					500, // multi-MiB requests on slow media
				},
			},
			[]string{"op"},
		),
		requestBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotdisk_request_bytes_total",
				Help: "Bytes moved by successful block requests",
			},
			[]string{"op"},
		),
		queueWait: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rotdisk_queue_wait_milliseconds",
				Help:    "Time a request spent enqueued before a worker picked it up",
				Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000},
			},
		),
		queueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotdisk_queue_depth",
				Help: "Requests enqueued and waiting for a worker",
			},
		),
		pins: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotdisk_device_pins",
				Help: "Outstanding device liveness pins (queued plus running requests)",
			},
		),
		rejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotdisk_rejected_requests_total",
				Help: "Submissions refused synchronously, by reason",
			},
			[]string{"reason"}, // device_closing, queue_full, stopped
		),
	}
}

func (m *deviceMetrics) ObserveRequest(op, status string, bytes int64, duration time.Duration) {
	m.requests.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(float64(duration.Microseconds()) / 1000)
	if status == "ok" {
		m.requestBytes.WithLabelValues(op).Add(float64(bytes))
	}
}

func (m *deviceMetrics) ObserveQueueWait(duration time.Duration) {
	m.queueWait.Observe(float64(duration.Microseconds()) / 1000)
}

func (m *deviceMetrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *deviceMetrics) SetPins(n int64) {
	m.pins.Set(float64(n))
}

func (m *deviceMetrics) RecordRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}
