package blockdev

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Operations
// ============================================================================

// Op is the operation a request performs.
type Op uint8

const (
	OpRead Op = iota + 1
	OpWrite
)

// String returns "read", "write", or a placeholder for unsupported values.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Valid reports whether the device can execute o.
func (o Op) Valid() bool {
	return o == OpRead || o == OpWrite
}

// ParseOp parses "read" or "write".
func ParseOp(s string) (Op, error) {
	switch s {
	case "read":
		return OpRead, nil
	case "write":
		return OpWrite, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", s)
	}
}

// ============================================================================
// Request
// ============================================================================

// State tracks a request through the dispatcher.
type State int32

const (
	StateSubmitted State = iota
	StateEnqueued
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateEnqueued:
		return "enqueued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Request is one block I/O request: an operation, a starting sector and an
// ordered list of segments. Segments map to consecutive byte ranges of the
// device starting at Sector*SectorSize. For reads the segments are filled in
// place; for writes they are only read.
//
// The caller must not touch the segments between Submit and completion.
type Request struct {
	ID       string
	Op       Op
	Sector   uint64
	Segments [][]byte

	// OnComplete, if set, runs on the worker after the status has been
	// delivered on Done. It must not block.
	OnComplete func(req *Request, err error)

	// Source names the front end that built the request (api, cli).
	Source string

	state     atomic.Int32
	submitted atomic.Bool
	initOnce  sync.Once
	done      chan error
	err       error
	enqueued  time.Time
}

// NewRequest builds a request with a fresh ID.
func NewRequest(op Op, sector uint64, segments ...[]byte) *Request {
	r := &Request{
		Op:       op,
		Sector:   sector,
		Segments: segments,
	}
	r.init()
	return r
}

func (r *Request) init() {
	r.initOnce.Do(func() {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.done = make(chan error, 1)
	})
}

// Done returns a channel that receives the request's status exactly once and
// is then closed. A nil status means every segment succeeded.
func (r *Request) Done() <-chan error {
	r.init()
	return r.done
}

// Wait blocks until the request completes or ctx ends. Requests cannot be
// cancelled: if ctx ends first the request keeps running and Wait returns
// ctx.Err().
func (r *Request) Wait(ctx context.Context) error {
	r.init()
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the completion status. It is only meaningful once State
// reports StateCompleted.
func (r *Request) Err() error {
	if r.State() != StateCompleted {
		return nil
	}
	return r.err
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	return State(r.state.Load())
}

// Len returns the total length of all segments.
func (r *Request) Len() int64 {
	var n int64
	for _, s := range r.Segments {
		n += int64(len(s))
	}
	return n
}

func (r *Request) setState(s State) {
	r.state.Store(int32(s))
}

// complete publishes err. err is written before the channel send so that
// receivers of Done observe it through Err and Wait.
func (r *Request) complete(err error) {
	r.err = err
	r.setState(StateCompleted)
	r.done <- err
	close(r.done)

	if r.OnComplete != nil {
		r.OnComplete(r, err)
	}
}

// SectorSegments splits buf into consecutive segments of sectorSize bytes.
// The last segment is shorter when len(buf) is not a multiple of sectorSize.
// The segments alias buf.
func SectorSegments(buf []byte, sectorSize int) [][]byte {
	if sectorSize <= 0 || len(buf) == 0 {
		return nil
	}
	segs := make([][]byte, 0, (len(buf)+sectorSize-1)/sectorSize)
	for off := 0; off < len(buf); off += sectorSize {
		end := min(off+sectorSize, len(buf))
		segs = append(segs, buf[off:end:end])
	}
	return segs
}

// ============================================================================
// Request Processor
// ============================================================================

// process runs req against the device on the calling goroutine and returns
// its aggregate status. Processing stops at the first failing segment.
func (d *Device) process(req *Request) error {
	if !req.Op.Valid() {
		return newError(req.Op, KindInvalidArgument, req.Sector, -1,
			fmt.Errorf("unsupported operation %s", req.Op))
	}

	ss := int64(d.geom.SectorSize)
	capacity := d.geom.Bytes()
	if req.Sector > uint64(capacity/ss) {
		return newError(req.Op, KindOutOfRange, req.Sector, -1,
			fmt.Errorf("start sector beyond %d-sector device", d.geom.Sectors))
	}
	start := int64(req.Sector) * ss

	// The whole request must fit before any segment reaches the store.
	offset := start
	for i, seg := range req.Segments {
		end := offset + int64(len(seg))
		if offset < 0 || end > capacity {
			return newError(req.Op, KindOutOfRange, req.Sector, offset,
				fmt.Errorf("segment %d ends at byte %d, capacity is %d", i, end, capacity))
		}
		offset = end
	}

	d.ioMu.Lock()
	defer d.ioMu.Unlock()

	offset = start
	for i, seg := range req.Segments {
		end := offset + int64(len(seg))
		if len(seg) == 0 {
			continue
		}
		if err := d.transferSegment(req.Op, seg, offset); err != nil {
			err.Sector = req.Sector
			err.Err = fmt.Errorf("segment %d: %w", i, err.Err)
			return err
		}
		offset = end
	}
	return nil
}
