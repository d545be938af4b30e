package blockdev

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/bufpool"
	"github.com/marmos91/rotdisk/pkg/store/backing"
	"github.com/marmos91/rotdisk/pkg/transform"
)

// DeviceConfig describes everything a Device needs besides its store.
type DeviceConfig struct {
	Geometry Geometry

	// Codec transforms sectors on their way to and from the store.
	Codec transform.Codec

	// Pool supplies scratch buffers. Nil uses an unbounded pool.
	Pool *bufpool.Pool

	// Metrics is optional.
	Metrics Metrics

	// Path is informational, reported by Info.
	Path string
}

// Device is an emulated block device over one backing store.
//
// The device exclusively owns its store from NewDevice until Close. Requests
// hold a liveness pin while they are queued or running; Close refuses new
// pins and waits for the existing ones before releasing the store.
type Device struct {
	geom    Geometry
	store   backing.Store
	codec   transform.Codec
	pool    *bufpool.Pool
	metrics Metrics
	path    string

	// ioMu serializes store access for the whole of a request.
	ioMu sync.Mutex

	mu      sync.Mutex
	pins    int64
	closing bool
	closed  bool
	drained chan struct{}
}

// NewDevice creates a device over store. The store must already be at least
// as large as the geometry's capacity.
func NewDevice(store backing.Store, cfg DeviceConfig) (*Device, error) {
	if store == nil {
		return nil, errors.New("backing store is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("transform codec is required")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	size, err := store.Size()
	if err != nil {
		return nil, fmt.Errorf("query backing store size: %w", err)
	}
	if size < cfg.Geometry.Bytes() {
		return nil, fmt.Errorf("backing store holds %d bytes, device needs %d", size, cfg.Geometry.Bytes())
	}

	pool := cfg.Pool
	if pool == nil {
		pool = bufpool.NewPool(nil)
	}

	return &Device{
		geom:    cfg.Geometry,
		store:   store,
		codec:   cfg.Codec,
		pool:    pool,
		metrics: cfg.Metrics,
		path:    cfg.Path,
		drained: make(chan struct{}),
	}, nil
}

// Geometry returns the device geometry.
func (d *Device) Geometry() Geometry {
	return d.geom
}

// ============================================================================
// Liveness Guard
// ============================================================================

// Pin marks the device as in use by one more request. It fails with
// ErrDeviceClosing once Close has been called.
func (d *Device) Pin() error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return ErrDeviceClosing
	}
	d.pins++
	n := d.pins
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetPins(n)
	}
	return nil
}

// Unpin releases a pin taken by Pin. Releasing more pins than were taken
// panics.
func (d *Device) Unpin() {
	d.mu.Lock()
	if d.pins <= 0 {
		d.mu.Unlock()
		panic("blockdev: Unpin without matching Pin")
	}
	d.pins--
	n := d.pins
	if n == 0 && d.closing {
		close(d.drained)
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.SetPins(n)
	}
}

// Pins returns the number of outstanding pins.
func (d *Device) Pins() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pins
}

// Closing reports whether teardown has begun.
func (d *Device) Closing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closing
}

// Close tears the device down. New pins are refused immediately; Close then
// waits for outstanding pins to drain before syncing and closing the store.
//
// If ctx ends first, Close returns ErrPinsOutstanding and leaves the store
// open; calling Close again resumes waiting. Once the store is closed further
// calls return nil.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	if !d.closing {
		d.closing = true
		if d.pins == 0 {
			close(d.drained)
		}
		logger.Debug("Device closing", logger.KeyPath, d.path, logger.KeyPins, d.pins)
	}
	d.mu.Unlock()

	select {
	case <-d.drained:
	case <-ctx.Done():
		n := d.Pins()
		logger.Warn("Device close timed out", logger.KeyPath, d.path, logger.KeyPins, n)
		return fmt.Errorf("%w: %d pinned: %w", ErrPinsOutstanding, n, ctx.Err())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.store.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("release backing store: %w", err)
	}

	logger.Info("Device closed", logger.KeyPath, d.path)
	return nil
}

// ============================================================================
// Introspection
// ============================================================================

// Info returns a snapshot of the device. Dispatcher fields are left zero;
// Disk.Info fills them in.
func (d *Device) Info() Info {
	d.mu.Lock()
	pins, closing := d.pins, d.closing
	d.mu.Unlock()

	return Info{
		Path:       d.path,
		SectorSize: d.geom.SectorSize,
		Sectors:    d.geom.Sectors,
		Bytes:      d.geom.Bytes(),
		Partitions: d.geom.Partitions,
		Transform:  codecName(d.codec),
		Pins:       pins,
		Closing:    closing,
	}
}

func codecName(c transform.Codec) string {
	switch c.(type) {
	case transform.Rotation, *transform.Rotation:
		return "rotation"
	case transform.Identity, *transform.Identity:
		return "identity"
	default:
		return fmt.Sprintf("%T", c)
	}
}
