package blockdev

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/pkg/store/backing/memory"
	"github.com/marmos91/rotdisk/pkg/transform"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "disk.img")
	cfg.Capacity = testSectors * SectorSize
	cfg.StopTimeout = 5 * time.Second
	return cfg
}

func openDisk(t *testing.T, cfg Config, opts ...Option) *Disk {
	t.Helper()
	disk, err := Open(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Shutdown(context.Background()) })
	return disk
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultPath, cfg.Path)
	assert.Equal(t, 3, cfg.Key)
	assert.Equal(t, DefaultQueueDepth, cfg.QueueDepth)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, os.FileMode(0o600), cfg.FileMode)

	g := cfg.Geometry()
	assert.Equal(t, uint64(12800), g.Sectors)
	assert.Equal(t, uint32(SectorSize), g.SectorSize)
	assert.Equal(t, 16, g.Partitions)
}

func TestConfigGeometryRoundsDown(t *testing.T) {
	cfg := Config{Capacity: 3*SectorSize + 100}
	g := cfg.Geometry()
	assert.Equal(t, uint64(3), g.Sectors)
	assert.Equal(t, uint32(SectorSize), g.SectorSize)
}

// ============================================================================
// End-to-end Scenarios
// ============================================================================

func TestDisk_HelloScenario(t *testing.T) {
	cfg := testConfig(t)
	disk := openDisk(t, cfg)
	ctx := context.Background()

	payload := sectorOf("Hello")
	require.NoError(t, disk.WriteSectors(ctx, 0, payload))

	got, err := disk.ReadSectors(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	raw, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	require.Len(t, raw, testSectors*SectorSize)
	assert.Equal(t, sectorOf("Khoor"), raw[:SectorSize])
	assert.False(t, bytes.Contains(raw, []byte("Hello")), "plaintext must never reach the backing file")
}

func TestDisk_PersistsAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	disk, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, disk.WriteSectors(ctx, 42, sectorOf("persist me ")))
	require.NoError(t, disk.Shutdown(ctx))

	disk = openDisk(t, cfg)
	got, err := disk.ReadSectors(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, sectorOf("persist me "), got)
}

func TestDisk_IdentityCodecShowsStoredBytes(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	disk, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, disk.WriteSectors(ctx, 0, []byte("Hello")))
	require.NoError(t, disk.Shutdown(ctx))

	raw := openDisk(t, cfg, WithCodec(transform.Identity{}))
	got, err := raw.ReadSectors(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("Khoor"), got[:5])
	assert.Equal(t, "identity", raw.Info().Transform)
}

func TestDisk_ReadSectorsBounds(t *testing.T) {
	disk := openDisk(t, testConfig(t))
	ctx := context.Background()

	_, err := disk.ReadSectors(ctx, testSectors-1, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = disk.ReadSectors(ctx, 0, testSectors+1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = disk.ReadSectors(ctx, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	got, err := disk.ReadSectors(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDisk_SourceFromLogContext(t *testing.T) {
	store := memory.New(testSectors * SectorSize)
	disk := openDisk(t, testConfig(t), WithStore(store))

	lc := logger.NewLogContext("", "write", 3).WithSource("cli")
	ctx := logger.WithContext(context.Background(), lc)
	require.NoError(t, disk.WriteSectors(ctx, 3, []byte("abc")))
	assert.Equal(t, []byte("def"), store.Bytes(3*SectorSize, 3))
}

func TestDisk_Info(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 2
	cfg.QueueDepth = 8
	disk := openDisk(t, cfg)

	info := disk.Info()
	assert.Equal(t, cfg.Path, info.Path)
	assert.Equal(t, uint64(testSectors), info.Sectors)
	assert.Equal(t, 2, info.Workers)
	assert.Equal(t, 8, info.QueueDepth)
	assert.Zero(t, info.Pending)
	assert.Equal(t, "rotation", info.Transform)
	assert.Empty(t, info.LastError)
	assert.Nil(t, info.LastErrorAt)
}

func TestDisk_InfoCounters(t *testing.T) {
	disk := openDisk(t, testConfig(t))
	ctx := context.Background()

	require.NoError(t, disk.WriteSectors(ctx, 0, sectorOf("Hello")))
	_, err := disk.ReadSectors(ctx, testSectors-1, 2)
	require.ErrorIs(t, err, ErrOutOfRange)

	info := disk.Info()
	assert.Equal(t, 1, info.Completed)
	assert.Equal(t, 1, info.Failed)
	assert.Zero(t, info.Rejected)
	assert.Equal(t, err.Error(), info.LastError)
	require.NotNil(t, info.LastErrorAt)
	assert.False(t, info.LastErrorAt.IsZero())
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestDisk_Shutdown(t *testing.T) {
	store := memory.New(testSectors * SectorSize)
	disk, err := Open(testConfig(t), WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, disk.WriteSectors(ctx, 0, sectorOf("Hello")))
	require.NoError(t, disk.Shutdown(ctx))
	assert.True(t, store.Closed())

	// Idempotent
	assert.NoError(t, disk.Shutdown(ctx))

	err = disk.WriteSectors(ctx, 0, sectorOf("Hello"))
	assert.ErrorIs(t, err, ErrAdmission)
}

func TestOpen_UnwindsOnFailure(t *testing.T) {
	t.Run("DeviceCreationClosesStore", func(t *testing.T) {
		// The injected store is too small for the configured capacity
		store := memory.New(SectorSize)
		_, err := Open(testConfig(t), WithStore(store))
		require.Error(t, err)
		assert.True(t, store.Closed())
	})

	t.Run("DispatcherCreationClosesDeviceAndStore", func(t *testing.T) {
		store := memory.New(testSectors * SectorSize)
		cfg := testConfig(t)
		cfg.QueueDepth = -1

		_, err := Open(cfg, WithStore(store))
		require.Error(t, err)
		assert.True(t, store.Closed())
		assert.Equal(t, int64(1), store.Syncs(), "the device, not the raw store, was released")
	})

	t.Run("ReleasesFileLock", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Workers = -1

		_, err := Open(cfg)
		require.Error(t, err)

		// The backing file is free again
		cfg.Workers = 1
		disk, err := Open(cfg)
		require.NoError(t, err)
		assert.NoError(t, disk.Shutdown(context.Background()))
	})

	t.Run("InvalidGeometryClosesInjectedStore", func(t *testing.T) {
		store := memory.New(SectorSize)
		cfg := testConfig(t)
		cfg.Capacity = 10

		_, err := Open(cfg, WithStore(store))
		require.Error(t, err)
		assert.True(t, store.Closed())
	})

	t.Run("BackingFileOpenFailure", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Path = filepath.Join(t.TempDir(), "missing", "dir", "disk.img")

		_, err := Open(cfg)
		assert.Error(t, err)
	})
}

func TestOpen_ExclusiveBackingFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("advisory locks are unix only")
	}
	cfg := testConfig(t)
	openDisk(t, cfg)

	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestOpen_ScratchBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScratchBudget = SectorSize
	disk := openDisk(t, cfg)
	ctx := context.Background()

	// Sector-sized segments fit the budget one at a time
	require.NoError(t, disk.WriteSectors(ctx, 0, make([]byte, 4*SectorSize)))

	// A single oversized segment does not
	req := NewRequest(OpWrite, 0, make([]byte, 2*SectorSize))
	require.NoError(t, disk.Submit(ctx, req))
	assert.ErrorIs(t, req.Wait(ctx), ErrResourceExhausted)
}
