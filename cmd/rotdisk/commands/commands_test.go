package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags clears flag state left over from a previous Execute.
func resetFlags() {
	cfgFile, logLevel = "", ""
	initForce, initInteractive = false, false
	readCount, readRaw, readBinary = 1, false, false
	writeData, writeFile, writeRaw = "", "", false
	infoOutput = "table"
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) (configPath, imagePath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	imagePath = filepath.Join(dir, "disk.img")
	configPath = filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: ERROR
  output: stderr
device:
  path: ` + imagePath + `
  size: 1MiB
  sector_size: 4096
  key: 3
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath, imagePath
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestInit_CreatesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotdisk", "config.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")
	assert.FileExists(t, path)

	_, err = execute(t, "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestWriteThenRead(t *testing.T) {
	configPath, imagePath := writeTestConfig(t)

	out, err := execute(t, "write", "2", "--data", "Hello", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 bytes at sector 2 (1 sector(s))")

	out, err = execute(t, "write", "4", "--data", strings.Repeat("x", 4097), "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 sector(s))")

	image, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("Khoor"), image[2*4096:2*4096+5])

	out, err = execute(t, "read", "2", "--binary", "--config", configPath)
	require.NoError(t, err)
	require.Len(t, out, 4096)
	assert.Equal(t, "Hello", out[:5])

	out, err = execute(t, "read", "2", "--binary", "--raw", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "Khoor", out[:5])

	out, err = execute(t, "read", "0x2", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "00002000  48 65 6c 6c 6f")
	assert.Contains(t, out, "|Hello")
}

func TestRead_OutOfRange(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := execute(t, "read", "256", "--config", configPath)
	assert.Error(t, err)

	_, err = execute(t, "read", "0", "--count", "0", "--config", configPath)
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := execute(t, "info", "--output", "json", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"sectors": 256`)
	assert.Contains(t, out, `"transform": "rotation"`)
}

func TestInvalidLogLevel(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	_, err := execute(t, "info", "--log-level", "chatty", "--config", configPath)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestConfigCommands(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := execute(t, "config", "validate", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "SETTING")
	assert.Contains(t, out, "256 x 4096 bytes")

	out, err = execute(t, "config", "show", "-o", "yaml", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sector_size: 4096")

	out, err = execute(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "rotdisk Configuration")
}

func TestConfigEdit(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "true")

	out, err := execute(t, "config", "edit", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	require.NoError(t, os.WriteFile(configPath, []byte("device:\n  size: lots\n"), 0600))
	_, err = execute(t, "config", "edit", "--config", configPath)
	assert.ErrorContains(t, err, "not usable")

	_, err = execute(t, "config", "edit", "--config", configPath+".missing")
	assert.ErrorContains(t, err, "rotdisk init --config")
}
