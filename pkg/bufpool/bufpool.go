// Package bufpool provides the scratch buffers used by the segment translator.
//
// Every segment is staged in a scratch buffer. On writes the segment is
// copied into it and encoded. On reads the buffer receives the stored bytes
// and is decoded before being copied out. Buffers come from three size tiers
// backed by sync.Pool:
//   - Small (default 4KiB): one sector, the common segment size
//   - Medium (default 64KiB): multi-sector segments
//   - Large (default 1MiB): bulk transfers
//
// Larger requests are allocated directly and never pooled.
//
// A Pool can carry a byte budget that bounds the scratch memory checked out
// at once. When a Get would exceed the budget it fails with ErrExhausted
// instead of allocating.
//
// # Usage
//
//	buf, err := pool.Get(size)
//	if err != nil {
//		return err
//	}
//	defer pool.Put(buf)
package bufpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Default buffer size classes.
const (
	DefaultSmallSize  = 4 << 10
	DefaultMediumSize = 64 << 10
	DefaultLargeSize  = 1 << 20
)

// ErrExhausted is returned by Get when the pool's byte budget is used up.
var ErrExhausted = errors.New("scratch buffer budget exhausted")

// Config holds configuration for a Pool.
type Config struct {
	// SmallSize is the size of small buffers (default: 4KiB)
	SmallSize int

	// MediumSize is the size of medium buffers (default: 64KiB)
	MediumSize int

	// LargeSize is the size of large buffers (default: 1MiB)
	LargeSize int

	// Budget bounds the bytes checked out at once, counted by buffer
	// capacity. Zero means unlimited.
	Budget int64
}

// DefaultConfig returns the default pool configuration (no budget).
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

// Pool manages tiered scratch buffers.
type Pool struct {
	tiers  [3]tier
	budget int64
	inUse  atomic.Int64
}

type tier struct {
	size int
	pool sync.Pool
}

// NewPool creates a pool. A nil cfg uses DefaultConfig.
func NewPool(cfg *Config) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		c.Budget = cfg.Budget
		if cfg.SmallSize > 0 {
			c.SmallSize = cfg.SmallSize
		}
		if cfg.MediumSize > 0 {
			c.MediumSize = cfg.MediumSize
		}
		if cfg.LargeSize > 0 {
			c.LargeSize = cfg.LargeSize
		}
	}

	p := &Pool{budget: c.Budget}
	for i, size := range []int{c.SmallSize, c.MediumSize, c.LargeSize} {
		t := &p.tiers[i]
		t.size = size
		t.pool.New = func() any {
			buf := make([]byte, t.size)
			return &buf
		}
	}
	return p
}

// Get returns a buffer of exactly size bytes, backed by a pooled buffer when
// size fits a tier. The contents are unspecified; callers overwrite them.
//
// Get fails with ErrExhausted when checking the buffer out would exceed the
// budget. The caller must Put every buffer it obtained.
func (p *Pool) Get(size int) ([]byte, error) {
	if size < 0 {
		size = 0
	}

	t := p.tierFor(size)
	capacity := size
	if t != nil {
		capacity = t.size
	}

	if !p.reserve(int64(capacity)) {
		return nil, ErrExhausted
	}

	if t == nil {
		return make([]byte, size), nil
	}
	buf := *(t.pool.Get().(*[]byte))
	return buf[:size], nil
}

// Put returns buf to the pool and releases its share of the budget.
// buf must have come from Get on the same pool and must not be used afterwards.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	capacity := cap(buf)
	if p.budget > 0 {
		p.inUse.Add(-int64(capacity))
	}

	for i := range p.tiers {
		t := &p.tiers[i]
		if capacity == t.size {
			full := buf[:capacity]
			t.pool.Put(&full)
			return
		}
	}
}

// InUse returns the bytes currently checked out. It is only tracked when the
// pool has a budget.
func (p *Pool) InUse() int64 {
	return p.inUse.Load()
}

// Budget returns the configured budget (0 = unlimited).
func (p *Pool) Budget() int64 {
	return p.budget
}

func (p *Pool) tierFor(size int) *tier {
	for i := range p.tiers {
		if size <= p.tiers[i].size {
			return &p.tiers[i]
		}
	}
	return nil
}

func (p *Pool) reserve(n int64) bool {
	if p.budget <= 0 {
		return true
	}
	for {
		cur := p.inUse.Load()
		if cur+n > p.budget {
			return false
		}
		if p.inUse.CompareAndSwap(cur, cur+n) {
			return true
		}
	}
}
