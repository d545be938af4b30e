package blockdev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/bufpool"
	"github.com/marmos91/rotdisk/pkg/store/backing"
	"github.com/marmos91/rotdisk/pkg/store/backing/file"
	"github.com/marmos91/rotdisk/pkg/transform"
)

// Config describes a disk to open.
type Config struct {
	// Path is the backing file.
	Path string

	// Capacity is the device size in bytes. It is rounded down to whole
	// sectors.
	Capacity int64

	// SectorSize is the bytes per sector (default: 4096).
	SectorSize uint32

	// Key is the rotation key.
	Key int

	// Partitions is the number of partition minors to advertise.
	Partitions int

	// FileMode is used when the backing file is created (default: 0600).
	FileMode os.FileMode

	// FileFlags are passed to os.OpenFile (default: O_RDWR|O_CREATE).
	FileFlags int

	// NoLock skips the exclusive lock on the backing file.
	NoLock bool

	Workers    int
	QueueDepth int

	// ScratchBudget bounds scratch memory in bytes (0 = unlimited).
	ScratchBudget int64

	// StopTimeout bounds how long Shutdown waits for queued requests.
	StopTimeout time.Duration
}

// DefaultConfig returns the stock 50 MiB, key 3 device at DefaultPath.
func DefaultConfig() Config {
	return Config{
		Path:        DefaultPath,
		Capacity:    DefaultCapacity,
		SectorSize:  SectorSize,
		Key:         DefaultKey,
		Partitions:  DefaultPartitions,
		FileMode:    file.DefaultMode,
		Workers:     DefaultWorkers,
		QueueDepth:  DefaultQueueDepth,
		StopTimeout: 30 * time.Second,
	}
}

// Geometry derives the device geometry from c.
func (c Config) Geometry() Geometry {
	ss := c.SectorSize
	if ss == 0 {
		ss = SectorSize
	}
	var sectors uint64
	if c.Capacity > 0 {
		sectors = uint64(c.Capacity) / uint64(ss)
	}
	return Geometry{SectorSize: ss, Sectors: sectors, Partitions: c.Partitions}
}

// Option customizes Open.
type Option func(*openOptions)

type openOptions struct {
	codec   transform.Codec
	store   backing.Store
	metrics Metrics
}

// WithCodec replaces the rotation transform (for example with
// transform.Identity to inspect stored bytes).
func WithCodec(c transform.Codec) Option {
	return func(o *openOptions) { o.codec = c }
}

// WithStore uses s instead of opening the backing file. Ownership of s
// passes to the disk, including on failure.
func WithStore(s backing.Store) Option {
	return func(o *openOptions) { o.store = s }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *openOptions) { o.metrics = m }
}

// Disk is an open device together with its dispatcher.
type Disk struct {
	Device     *Device
	Dispatcher *Dispatcher

	stopTimeout time.Duration
}

// Open acquires, in order, the scratch pool, the backing store, the device
// and the dispatcher. If any step fails every resource already acquired is
// released in reverse order and the error is returned.
func Open(cfg Config, opts ...Option) (_ *Disk, err error) {
	o := openOptions{codec: transform.NewRotation(cfg.Key)}
	for _, opt := range opts {
		opt(&o)
	}

	geom := cfg.Geometry()
	if err := geom.Validate(); err != nil {
		if o.store != nil {
			_ = o.store.Close()
		}
		return nil, fmt.Errorf("invalid device geometry: %w", err)
	}

	var u unwinder
	defer func() {
		if err != nil {
			u.run()
		}
	}()

	// 1. Scratch pool
	pool := bufpool.NewPool(&bufpool.Config{Budget: cfg.ScratchBudget})
	u.push("scratch pool", func() error {
		if n := pool.InUse(); n != 0 {
			return fmt.Errorf("%d scratch bytes still checked out", n)
		}
		return nil
	})

	// 2. Backing store
	store := o.store
	if store == nil {
		fs, err := file.Open(file.Config{
			Path:     cfg.Path,
			Capacity: geom.Bytes(),
			Flags:    cfg.FileFlags,
			Mode:     cfg.FileMode,
			NoLock:   cfg.NoLock,
		})
		if err != nil {
			return nil, fmt.Errorf("open backing file: %w", err)
		}
		store = fs
	}
	u.push("backing store", store.Close)

	// 3. Device (takes ownership of the store)
	dev, err := NewDevice(store, DeviceConfig{
		Geometry: geom,
		Codec:    o.codec,
		Pool:     pool,
		Metrics:  o.metrics,
		Path:     cfg.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	u.replaceTop("device", func() error { return dev.Close(context.Background()) })

	// 4. Dispatcher
	disp, err := NewDispatcher(dev, DispatcherConfig{QueueDepth: cfg.QueueDepth, Workers: cfg.Workers})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	disp.Start()

	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}

	logger.Info("Disk opened",
		logger.KeyPath, cfg.Path,
		logger.KeySectors, geom.Sectors,
		logger.KeySectorSize, geom.SectorSize,
		logger.KeySize, geom.Bytes(),
		logger.KeyWorkers, disp.Workers(),
		logger.KeyQueueDepth, disp.QueueDepth())

	return &Disk{Device: dev, Dispatcher: disp, stopTimeout: stopTimeout}, nil
}

// Submit enqueues req on the disk's dispatcher.
func (k *Disk) Submit(ctx context.Context, req *Request) error {
	return k.Dispatcher.Submit(ctx, req)
}

// ReadSectors reads count sectors starting at sector through the dispatcher
// and waits for the result.
func (k *Disk) ReadSectors(ctx context.Context, sector uint64, count int) ([]byte, error) {
	if count < 0 {
		return nil, newError(OpRead, KindInvalidArgument, sector, -1, fmt.Errorf("negative sector count %d", count))
	}
	ss := int(k.Device.geom.SectorSize)
	if uint64(count) > k.Device.geom.Sectors {
		return nil, newError(OpRead, KindOutOfRange, sector, -1,
			fmt.Errorf("%d sectors requested from %d-sector device", count, k.Device.geom.Sectors))
	}

	buf := make([]byte, count*ss)
	req := NewRequest(OpRead, sector, SectorSegments(buf, ss)...)
	if err := k.run(ctx, req); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteSectors writes data starting at sector through the dispatcher and
// waits for the result. data is split into sector-sized segments; a trailing
// partial sector only overwrites its leading bytes.
func (k *Disk) WriteSectors(ctx context.Context, sector uint64, data []byte) error {
	req := NewRequest(OpWrite, sector, SectorSegments(data, int(k.Device.geom.SectorSize))...)
	return k.run(ctx, req)
}

func (k *Disk) run(ctx context.Context, req *Request) error {
	if lc := logger.FromContext(ctx); lc != nil {
		req.Source = lc.Source
	}
	if err := k.Submit(ctx, req); err != nil {
		return err
	}
	return req.Wait(ctx)
}

// Info returns a snapshot of geometry and queue state.
func (k *Disk) Info() Info {
	info := k.Device.Info()
	info.Workers = k.Dispatcher.Workers()
	info.QueueDepth = k.Dispatcher.QueueDepth()
	_, info.Completed, info.Failed, info.Rejected = k.Dispatcher.Stats()
	info.Pending = k.Dispatcher.Pending()
	if at, err := k.Dispatcher.LastError(); err != nil {
		info.LastError = err.Error()
		info.LastErrorAt = &at
	}
	return info
}

// Shutdown stops the dispatcher, letting queued requests finish, then closes
// the device. It is safe to call more than once.
func (k *Disk) Shutdown(ctx context.Context) error {
	timeout := k.stopTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}

	stopErr := k.Dispatcher.Stop(timeout)
	if err := k.Device.Close(ctx); err != nil {
		return errors.Join(stopErr, err)
	}
	return stopErr
}

// ============================================================================
// Unwinding
// ============================================================================

type unwindStep struct {
	name    string
	release func() error
}

// unwinder releases acquired resources in reverse acquisition order.
type unwinder struct {
	steps []unwindStep
}

func (u *unwinder) push(name string, release func() error) {
	u.steps = append(u.steps, unwindStep{name: name, release: release})
}

// replaceTop swaps the most recent step for one that releases a resource
// that took ownership of it.
func (u *unwinder) replaceTop(name string, release func() error) {
	u.steps[len(u.steps)-1] = unwindStep{name: name, release: release}
}

func (u *unwinder) run() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if err := s.release(); err != nil {
			logger.Warn("Failed to release resource during unwind", "resource", s.name, logger.KeyError, err)
			continue
		}
		logger.Debug("Released resource during unwind", "resource", s.name)
	}
	u.steps = nil
}
