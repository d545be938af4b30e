package blockdev

import "time"

// Metrics receives device and dispatcher observations.
//
// A nil Metrics is valid and costs nothing; see pkg/metrics for the
// Prometheus-backed implementation.
type Metrics interface {
	// ObserveRequest records one completed request.
	ObserveRequest(op string, status string, bytes int64, duration time.Duration)

	// ObserveQueueWait records how long a request sat in the queue.
	ObserveQueueWait(duration time.Duration)

	// SetQueueDepth reports the number of enqueued, not yet running requests.
	SetQueueDepth(n int)

	// SetPins reports outstanding liveness pins.
	SetPins(n int64)

	// RecordRejected counts a synchronous admission rejection.
	RecordRejected(reason string)
}
