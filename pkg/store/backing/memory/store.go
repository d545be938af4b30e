// Package memory provides an in-memory backing store implementation for testing.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/marmos91/rotdisk/pkg/store/backing"
)

// Store is an in-memory implementation of backing.Store for testing.
//
// It records how many times each operation ran and can be told to fail the
// next ReadAt or WriteAt, which lets tests prove that rejected requests never
// reached the medium.
type Store struct {
	mu     sync.RWMutex
	data   []byte
	closed bool

	readErr  error
	writeErr error

	reads  atomic.Int64
	writes atomic.Int64
	syncs  atomic.Int64
}

var _ backing.Store = (*Store)(nil)

// New creates a zero-filled store of size bytes.
func New(size int64) *Store {
	return &Store{data: make([]byte, size)}
}

// ReadAt copies stored bytes into p.
func (s *Store) ReadAt(p []byte, off int64) error {
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	if s.readErr != nil {
		return s.readErr
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return fmt.Errorf("read %d bytes at %d: %w", len(p), off, backing.ErrShortRead)
	}
	copy(p, s.data[off:])
	return nil
}

// WriteAt copies p into the store.
func (s *Store) WriteAt(p []byte, off int64) error {
	s.writes.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return fmt.Errorf("write %d bytes at %d: %w", len(p), off, backing.ErrShortWrite)
	}
	copy(s.data[off:], p)
	return nil
}

// Size returns the store size.
func (s *Store) Size() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, backing.ErrStoreClosed
	}
	return int64(len(s.data)), nil
}

// Sync is a no-op that counts calls.
func (s *Store) Sync() error {
	s.syncs.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	s.closed = true
	return nil
}

// ============================================================================
// Test Hooks
// ============================================================================

// FailReads makes every ReadAt return err until cleared with nil.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailWrites makes every WriteAt return err until cleared with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Bytes returns a copy of the raw stored bytes in [off, off+n).
func (s *Store) Bytes(off, n int64) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]byte, n)
	copy(out, s.data[off:off+n])
	return out
}

// Reads returns the number of ReadAt calls.
func (s *Store) Reads() int64 { return s.reads.Load() }

// Writes returns the number of WriteAt calls.
func (s *Store) Writes() int64 { return s.writes.Load() }

// Syncs returns the number of Sync calls.
func (s *Store) Syncs() int64 { return s.syncs.Load() }

// Calls returns the total number of ReadAt and WriteAt calls.
func (s *Store) Calls() int64 { return s.reads.Load() + s.writes.Load() }

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
