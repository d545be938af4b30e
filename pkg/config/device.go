package config

import (
	"os"

	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// KeyValue returns the rotation key, or the default when unset.
func (c *DeviceConfig) KeyValue() int {
	if c.Key == nil {
		return blockdev.DefaultKey
	}
	return *c.Key
}

// Geometry returns the geometry the device would have.
func (c *DeviceConfig) Geometry() blockdev.Geometry {
	return blockdev.Config{
		Capacity:   c.Size.Int64(),
		SectorSize: c.SectorSize,
		Partitions: c.Partitions,
	}.Geometry()
}

// ToBlockdev converts the device section into the options blockdev.Open
// takes. ShutdownTimeout bounds the dispatcher drain.
func (c *Config) ToBlockdev() (blockdev.Config, error) {
	mode, err := parseFileMode(c.Device.FileMode)
	if err != nil {
		return blockdev.Config{}, err
	}

	return blockdev.Config{
		Path:          c.Device.Path,
		Capacity:      c.Device.Size.Int64(),
		SectorSize:    c.Device.SectorSize,
		Key:           c.Device.KeyValue(),
		Partitions:    c.Device.Partitions,
		FileMode:      os.FileMode(mode),
		NoLock:        c.Device.NoLock,
		Workers:       c.Device.Workers,
		QueueDepth:    c.Device.QueueDepth,
		ScratchBudget: c.Device.ScratchBudget.Int64(),
		StopTimeout:   c.ShutdownTimeout,
	}, nil
}
