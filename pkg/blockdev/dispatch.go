package blockdev

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/internal/telemetry"
)

// Dispatcher defaults.
const (
	DefaultQueueDepth = 128
	DefaultWorkers    = 1
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// QueueDepth bounds enqueued, not yet running requests (default: 128).
	QueueDepth int

	// Workers is the number of goroutines executing requests (default: 1).
	// Store access is serialized per request regardless of this value.
	Workers int
}

// task is a request queued for one device.
type task struct {
	req *Request
	ctx context.Context
}

// Dispatcher accepts requests without blocking and executes them on a fixed
// pool of workers in FIFO order.
//
// Every accepted request holds a device pin from Submit until its status has
// been delivered, so the device cannot be torn down underneath it.
type Dispatcher struct {
	dev *Device

	tasks   chan task
	workers int

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	// lifeMu orders Submit against Stop: once stopped is set no further
	// task enters the queue, so the drain in Stop sees every accepted task.
	lifeMu  sync.RWMutex
	started bool
	stopped bool

	mu          sync.Mutex
	pending     int
	completed   int
	failed      int
	rejected    int
	lastError   error
	lastErrorAt time.Time
}

// NewDispatcher creates a dispatcher for dev. Call Start to begin executing.
func NewDispatcher(dev *Device, cfg DispatcherConfig) (*Dispatcher, error) {
	if dev == nil {
		return nil, errors.New("device is required")
	}
	if cfg.QueueDepth < 0 {
		return nil, fmt.Errorf("invalid queue depth %d", cfg.QueueDepth)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d", cfg.Workers)
	}
	if cfg.QueueDepth == 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Dispatcher{
		dev:       dev,
		tasks:     make(chan task, cfg.QueueDepth),
		workers:   cfg.Workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}, nil
}

// Start launches the workers. Calling Start more than once, or after Stop,
// does nothing.
func (q *Dispatcher) Start() {
	q.lifeMu.Lock()
	if q.started || q.stopped {
		q.lifeMu.Unlock()
		return
	}
	q.started = true
	q.lifeMu.Unlock()

	logger.Info("Starting dispatcher",
		logger.KeyWorkers, q.workers,
		logger.KeyQueueDepth, cap(q.tasks))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	go func() {
		q.wg.Wait()
		close(q.stoppedCh)
	}()
}

// Stop refuses new submissions and lets the workers finish everything that
// was already accepted. It returns an error if the queue has not drained
// within timeout; the workers keep draining in the background.
//
// A dispatcher that was never started drains its queue on the calling
// goroutine.
func (q *Dispatcher) Stop(timeout time.Duration) error {
	q.lifeMu.Lock()
	if q.stopped {
		q.lifeMu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	q.lifeMu.Unlock()

	logger.Info("Stopping dispatcher", logger.KeyPending, q.Pending())

	if !started {
		q.drainQueue(-1)
		return nil
	}

	close(q.stopCh)

	select {
	case <-q.stoppedCh:
		logger.Info("Dispatcher stopped gracefully")
		return nil
	case <-time.After(timeout):
		pending := q.Pending()
		logger.Warn("Dispatcher stop timed out", logger.KeyPending, pending)
		return fmt.Errorf("dispatcher stop timed out after %s with %d pending", timeout, pending)
	}
}

// Submit accepts req for asynchronous execution and returns immediately.
//
// A nil return means the request was enqueued and its status will arrive on
// req.Done(). Any error is an admission failure (KindAdmission, or
// KindInvalidArgument for a nil or reused request) and the request was not
// enqueued. ctx carries trace and log context only; it does not cancel the
// request.
func (q *Dispatcher) Submit(ctx context.Context, req *Request) error {
	if req == nil {
		return newError(0, KindInvalidArgument, 0, -1, errors.New("nil request"))
	}
	if !req.submitted.CompareAndSwap(false, true) {
		return newError(req.Op, KindInvalidArgument, req.Sector, -1, ErrAlreadySubmitted)
	}
	req.init()

	if err := q.dev.Pin(); err != nil {
		return q.reject(ctx, req, err)
	}

	q.lifeMu.RLock()
	defer q.lifeMu.RUnlock()

	if q.stopped {
		q.dev.Unpin()
		return q.reject(ctx, req, ErrDispatcherStopped)
	}

	q.mu.Lock()
	q.pending++
	q.mu.Unlock()

	req.enqueued = time.Now()
	req.setState(StateEnqueued)

	select {
	case q.tasks <- task{req: req, ctx: context.WithoutCancel(ctx)}:
		if q.dev.metrics != nil {
			q.dev.metrics.SetQueueDepth(len(q.tasks))
		}
		logger.DebugCtx(ctx, "Request enqueued",
			logger.KeyRequestID, req.ID,
			logger.KeyOperation, req.Op.String(),
			logger.KeySector, req.Sector,
			logger.KeySegments, len(req.Segments))
		return nil
	default:
		req.setState(StateSubmitted)
		q.mu.Lock()
		q.pending--
		q.mu.Unlock()
		q.dev.Unpin()
		return q.reject(ctx, req, ErrQueueFull)
	}
}

// reject records an admission failure and makes req submittable again.
func (q *Dispatcher) reject(ctx context.Context, req *Request, cause error) error {
	req.submitted.Store(false)

	q.mu.Lock()
	q.rejected++
	q.mu.Unlock()

	reason := "device_closing"
	switch {
	case errors.Is(cause, ErrQueueFull):
		reason = "queue_full"
	case errors.Is(cause, ErrDispatcherStopped):
		reason = "stopped"
	}
	if q.dev.metrics != nil {
		q.dev.metrics.RecordRejected(reason)
	}

	logger.WarnCtx(ctx, "Request rejected",
		logger.KeyRequestID, req.ID,
		logger.KeyOperation, req.Op.String(),
		logger.KeySector, req.Sector,
		logger.KeyError, cause)

	return newError(req.Op, KindAdmission, req.Sector, -1, cause)
}

// Pending returns the number of accepted requests that have not completed.
func (q *Dispatcher) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Stats returns request counters.
func (q *Dispatcher) Stats() (pending, completed, failed, rejected int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending, q.completed, q.failed, q.rejected
}

// LastError returns the most recent request failure and when it happened.
func (q *Dispatcher) LastError() (time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErrorAt, q.lastError
}

// Workers returns the worker count.
func (q *Dispatcher) Workers() int {
	return q.workers
}

// QueueDepth returns the queue capacity.
func (q *Dispatcher) QueueDepth() int {
	return cap(q.tasks)
}

// Stopped reports whether Stop has been called.
func (q *Dispatcher) Stopped() bool {
	q.lifeMu.RLock()
	defer q.lifeMu.RUnlock()
	return q.stopped
}

// worker executes tasks until Stop, then drains what is left.
func (q *Dispatcher) worker(id int) {
	defer q.wg.Done()

	logger.Debug("Dispatcher worker started", logger.KeyWorkerID, id)

	for {
		select {
		case t := <-q.tasks:
			q.run(t, id)
		case <-q.stopCh:
			q.drainQueue(id)
			logger.Debug("Dispatcher worker stopped", logger.KeyWorkerID, id)
			return
		}
	}
}

// drainQueue runs every task still queued.
func (q *Dispatcher) drainQueue(id int) {
	for {
		select {
		case t := <-q.tasks:
			q.run(t, id)
		default:
			return
		}
	}
}

// run executes one task, delivers its status, and releases its pin.
func (q *Dispatcher) run(t task, workerID int) {
	req := t.req
	wait := time.Since(req.enqueued)

	ctx, span := telemetry.StartRequestSpan(t.ctx, req.ID, req.Op.String(), req.Sector,
		telemetry.Bytes(req.Len()),
		telemetry.Segments(len(req.Segments)),
		telemetry.WorkerID(workerID),
		telemetry.QueueWaitMs(float64(wait.Microseconds())/1000))
	if req.Source != "" {
		telemetry.SetAttributes(ctx, telemetry.Source(req.Source))
	}

	req.setState(StateRunning)
	start := time.Now()
	err := q.dev.process(req)
	elapsed := time.Since(start)

	status := StatusOf(err)
	telemetry.SetAttributes(ctx, telemetry.Status(status))
	telemetry.RecordError(ctx, err)
	span.End()

	if m := q.dev.metrics; m != nil {
		m.ObserveQueueWait(wait)
		m.ObserveRequest(req.Op.String(), status, req.Len(), elapsed)
		m.SetQueueDepth(len(q.tasks))
	}

	q.recordResult(ctx, req, err, elapsed)
	req.complete(err)
	q.dev.Unpin()
}

// recordResult updates counters and logs the outcome.
func (q *Dispatcher) recordResult(ctx context.Context, req *Request, err error, elapsed time.Duration) {
	q.mu.Lock()
	q.pending--
	if err != nil {
		q.failed++
		q.lastError = err
		q.lastErrorAt = time.Now()
	} else {
		q.completed++
	}
	q.mu.Unlock()

	args := []any{
		logger.KeyRequestID, req.ID,
		logger.KeyOperation, req.Op.String(),
		logger.KeySector, req.Sector,
		logger.KeyCount, req.Len(),
		logger.KeyDurationMs, float64(elapsed.Microseconds()) / 1000,
	}
	if err != nil {
		logger.WarnCtx(ctx, "Request failed", append(args, logger.KeyStatus, StatusOf(err), logger.KeyError, err)...)
		return
	}
	logger.DebugCtx(ctx, "Request completed", args...)
}
