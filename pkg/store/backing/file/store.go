// Package file provides the os.File backed store used by the block device.
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/store/backing"
)

// Defaults applied by Open when the corresponding Config field is zero.
const (
	DefaultFlags = os.O_RDWR | os.O_CREATE
	DefaultMode  = os.FileMode(0o600)
)

// Config holds configuration for a file store.
type Config struct {
	// Path is the backing file location.
	Path string

	// Capacity is the device size in bytes. The file is grown to at least
	// this size on open and is never shrunk.
	Capacity int64

	// Flags are passed to os.OpenFile (default: O_RDWR|O_CREATE).
	Flags int

	// Mode is the permission used when the file is created (default: 0600).
	Mode os.FileMode

	// NoLock skips the exclusive advisory lock.
	NoLock bool
}

// Store is a backing.Store over a single regular file.
type Store struct {
	mu       sync.RWMutex
	f        *os.File
	path     string
	capacity int64
	locked   bool
	closed   bool
}

var _ backing.Store = (*Store)(nil)

// Open opens (creating if needed) the backing file described by cfg.
//
// The file is locked exclusively unless cfg.NoLock is set. If another
// process already holds the lock, Open fails with backing.ErrLocked.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("backing file path is required")
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("invalid capacity %d", cfg.Capacity)
	}
	if cfg.Flags == 0 {
		cfg.Flags = DefaultFlags
	}
	if cfg.Mode == 0 {
		cfg.Mode = DefaultMode
	}

	f, err := os.OpenFile(cfg.Path, cfg.Flags, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("open backing file: %w", err)
	}

	s := &Store{f: f, path: cfg.Path, capacity: cfg.Capacity}

	if !cfg.NoLock {
		if err := lockFile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.locked = true
	}

	info, err := f.Stat()
	if err != nil {
		s.release()
		return nil, fmt.Errorf("stat backing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		s.release()
		return nil, fmt.Errorf("backing path %s is not a regular file", cfg.Path)
	}

	if info.Size() < cfg.Capacity {
		if err := f.Truncate(cfg.Capacity); err != nil {
			s.release()
			return nil, fmt.Errorf("grow backing file to %d bytes: %w", cfg.Capacity, err)
		}
		logger.Debug("Backing file grown",
			logger.KeyPath, cfg.Path,
			"from", info.Size(),
			logger.KeySize, cfg.Capacity)
	}

	logger.Debug("Backing file opened",
		logger.KeyPath, cfg.Path,
		logger.KeySize, max(info.Size(), cfg.Capacity),
		"locked", s.locked)

	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// ReadAt reads len(p) bytes at off. Bytes past the end of the file but within
// capacity read as zero.
func (s *Store) ReadAt(p []byte, off int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return backing.ErrStoreClosed
	}

	n, err := s.f.ReadAt(p, off)
	if err == io.EOF {
		if off+int64(len(p)) > s.capacity {
			return fmt.Errorf("read %d bytes at %d: got %d: %w", len(p), off, n, backing.ErrShortRead)
		}
		clear(p[n:])
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %d bytes at %d: %w", len(p), off, err)
	}
	if n < len(p) {
		return fmt.Errorf("read %d bytes at %d: got %d: %w", len(p), off, n, backing.ErrShortRead)
	}
	return nil
}

// WriteAt writes p at off.
func (s *Store) WriteAt(p []byte, off int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return backing.ErrStoreClosed
	}

	n, err := s.f.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("write %d bytes at %d: %w", len(p), off, err)
	}
	if n < len(p) {
		return fmt.Errorf("write %d bytes at %d: wrote %d: %w", len(p), off, n, backing.ErrShortWrite)
	}
	return nil
}

// Size returns the current file size.
func (s *Store) Size() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, backing.ErrStoreClosed
	}

	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat backing file: %w", err)
	}
	return info.Size(), nil
}

// Sync flushes the file to stable storage.
func (s *Store) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync backing file: %w", err)
	}
	return nil
}

// Close releases the lock and closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return backing.ErrStoreClosed
	}
	s.closed = true

	if err := s.release(); err != nil {
		return fmt.Errorf("close backing file: %w", err)
	}
	logger.Debug("Backing file closed", logger.KeyPath, s.path)
	return nil
}

func (s *Store) release() error {
	if s.locked {
		if err := unlockFile(s.f); err != nil {
			logger.Warn("Failed to unlock backing file", logger.KeyPath, s.path, logger.KeyError, err)
		}
		s.locked = false
	}
	return s.f.Close()
}
