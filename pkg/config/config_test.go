package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rotdisk/internal/bytesize"
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "debug"
device:
  path: "/tmp/test.img"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.img", cfg.Device.Path)
	assert.Equal(t, bytesize.ByteSize(50*bytesize.MiB), cfg.Device.Size)
	assert.Equal(t, uint32(4096), cfg.Device.SectorSize)
	assert.Equal(t, 3, cfg.Device.KeyValue())
	assert.Equal(t, 16, cfg.Device.Partitions)
	assert.Equal(t, 1, cfg.Device.Workers)
	assert.Equal(t, 128, cfg.Device.QueueDepth)
	assert.Equal(t, "0600", cfg.Device.FileMode)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, blockdev.DefaultPath, cfg.Device.Path)
	assert.Equal(t, uint64(12800), cfg.Device.Geometry().Sectors)
}

func TestLoad_DeviceSection(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
shutdown_timeout: 5s
device:
  path: "`+yamlSafePath(dir)+`/disk.img"
  size: 1MiB
  sector_size: 512
  key: 0
  partitions: 4
  file_mode: "0644"
  workers: 4
  queue_depth: 16
  scratch_budget: 256Ki
  no_lock: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Device.KeyValue(), "explicit key 0 must not be replaced by the default")
	assert.Equal(t, bytesize.MiB, cfg.Device.Size)
	assert.Equal(t, 256*bytesize.KiB, cfg.Device.ScratchBudget)

	bc, err := cfg.ToBlockdev()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), bc.Capacity)
	assert.Equal(t, uint32(512), bc.SectorSize)
	assert.Equal(t, os.FileMode(0o644), bc.FileMode)
	assert.Equal(t, 4, bc.Workers)
	assert.Equal(t, 16, bc.QueueDepth)
	assert.Equal(t, int64(256<<10), bc.ScratchBudget)
	assert.Equal(t, 5*time.Second, bc.StopTimeout)
	assert.True(t, bc.NoLock)
	assert.Equal(t, uint64(2048), bc.Geometry().Sectors)
}

func TestLoad_SizeAsNumber(t *testing.T) {
	path := writeConfig(t, `
device:
  size: 409600
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cfg.Device.Geometry().Sectors)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROTDISK_DEVICE_KEY", "13")
	t.Setenv("ROTDISK_DEVICE_SIZE", "2MiB")
	t.Setenv("ROTDISK_LOGGING_LEVEL", "warn")

	path := writeConfig(t, `
device:
  key: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 13, cfg.Device.KeyValue())
	assert.Equal(t, 2*bytesize.MiB, cfg.Device.Size)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoad_EnvironmentWithoutFile(t *testing.T) {
	t.Setenv("ROTDISK_DEVICE_WORKERS", "8")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Device.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad size", "device:\n  size: lots\n", "failed to parse config"},
		{"bad duration", "shutdown_timeout: forever\n", "failed to parse config"},
		{"bad sector size", "device:\n  sector_size: 1000\n", "pow2"},
		{"tiny sector size", "device:\n  sector_size: 256\n", "min"},
		{"bad file mode", "device:\n  file_mode: \"rw-\"\n", "filemode"},
		{"size below one sector", "device:\n  size: 100\n", "device"},
		{"bad log level", "logging:\n  level: loud\n", "oneof"},
		{"malformed yaml", "device: [\n", "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yaml")
		_, err := MustLoad(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rotdisk init")
	})

	t.Run("ExistingFile", func(t *testing.T) {
		cfg, err := MustLoad(writeConfig(t, "device:\n  key: 7\n"))
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Device.KeyValue())
	})
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	key := 11
	cfg.Device.Key = &key
	cfg.Device.Size = 4 * bytesize.MiB
	cfg.Device.ScratchBudget = 64 * bytesize.KiB

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "size: 4MiB")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 11, loaded.Device.KeyValue())
	assert.Equal(t, 4*bytesize.MiB, loaded.Device.Size)
	assert.Equal(t, 64*bytesize.KiB, loaded.Device.ScratchBudget)
	assert.Equal(t, cfg.ShutdownTimeout, loaded.ShutdownTimeout)
}

func TestConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "rotdisk"), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "rotdisk", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())

	require.NoError(t, SaveConfig(GetDefaultConfig(), GetDefaultConfigPath()))
	assert.True(t, DefaultConfigExists())
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, path, func(cfg *Config) { changes <- cfg })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// An invalid file is ignored.
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	select {
	case cfg := <-changes:
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
