// Package backing provides the backing store interface for the block device.
//
// A backing store is a flat, positioned byte medium. It never sees plaintext:
// the device encodes every segment before WriteAt and decodes after ReadAt.
package backing

import (
	"errors"
)

// Common errors returned by Store implementations.
var (
	// ErrShortRead is returned when fewer bytes than requested were read.
	ErrShortRead = errors.New("short read from backing store")

	// ErrShortWrite is returned when fewer bytes than requested were written.
	ErrShortWrite = errors.New("short write to backing store")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("backing store is closed")

	// ErrLocked is returned when another process holds the backing file.
	ErrLocked = errors.New("backing file is locked by another process")
)

// Store defines the interface for backing media.
//
// Both I/O calls transfer exactly len(p) bytes or fail. Implementations do
// not retry: a partial transfer is reported as ErrShortRead or ErrShortWrite
// and the caller decides what to do with it.
type Store interface {
	// ReadAt fills p with the bytes stored at off.
	ReadAt(p []byte, off int64) error

	// WriteAt stores p at off.
	WriteAt(p []byte, off int64) error

	// Size returns the current size of the medium in bytes.
	Size() (int64, error)

	// Sync flushes written data to stable storage.
	Sync() error

	// Close releases the medium. Further calls return ErrStoreClosed.
	Close() error
}
