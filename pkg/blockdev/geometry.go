package blockdev

import (
	"fmt"
	"time"
)

// Geometry defaults.
const (
	// SectorSize is the default bytes per sector (one page).
	SectorSize = 4096

	// DefaultCapacity is the default device size in bytes (50 MiB).
	DefaultCapacity = 50 << 20

	// DefaultPartitions is the default number of partition minors.
	DefaultPartitions = 16

	// DefaultKey is the default rotation key.
	DefaultKey = 3

	// DefaultPath is the default backing file location.
	DefaultPath = "/tmp/rotdisk.img"
)

// Geometry is the immutable shape of a device.
type Geometry struct {
	SectorSize uint32 // bytes per sector, a power of two >= 512
	Sectors    uint64 // capacity in sectors
	Partitions int    // partition minors advertised to clients
}

// Bytes returns the capacity in bytes.
func (g Geometry) Bytes() int64 {
	return int64(g.Sectors) * int64(g.SectorSize)
}

// Validate checks that the geometry describes an addressable device.
func (g Geometry) Validate() error {
	if g.SectorSize < 512 || g.SectorSize&(g.SectorSize-1) != 0 {
		return fmt.Errorf("sector size %d is not a power of two >= 512", g.SectorSize)
	}
	if g.Sectors == 0 {
		return fmt.Errorf("device must have at least one sector")
	}
	if g.Sectors > uint64(1<<63-1)/uint64(g.SectorSize) {
		return fmt.Errorf("capacity of %d sectors overflows the byte range", g.Sectors)
	}
	if g.Partitions < 0 {
		return fmt.Errorf("invalid partition count %d", g.Partitions)
	}
	return nil
}

// SectorsFor returns how many sectors are needed to hold n bytes.
func (g Geometry) SectorsFor(n int) uint64 {
	return (uint64(n) + uint64(g.SectorSize) - 1) / uint64(g.SectorSize)
}

// Info is a point-in-time description of a running device.
// It never includes the transform key.
type Info struct {
	Path       string `json:"path" yaml:"path"`
	SectorSize uint32 `json:"sector_size" yaml:"sector_size"`
	Sectors    uint64 `json:"sectors" yaml:"sectors"`
	Bytes      int64  `json:"bytes" yaml:"bytes"`
	Partitions int    `json:"partitions" yaml:"partitions"`
	Transform  string `json:"transform" yaml:"transform"`
	Workers    int    `json:"workers" yaml:"workers"`
	QueueDepth int    `json:"queue_depth" yaml:"queue_depth"`
	Pending    int    `json:"pending" yaml:"pending"`
	Pins       int64  `json:"pins" yaml:"pins"`
	Closing    bool   `json:"closing" yaml:"closing"`

	// Request counters since open.
	Completed int `json:"completed" yaml:"completed"`
	Failed    int `json:"failed" yaml:"failed"`
	Rejected  int `json:"rejected" yaml:"rejected"`

	// LastError is the most recent request failure, if any.
	LastError   string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty" yaml:"last_error_at,omitempty"`
}
