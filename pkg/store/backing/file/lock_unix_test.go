//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/rotdisk/pkg/store/backing"
)

func TestExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	s, err := Open(Config{Path: path, Capacity: 4096})
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(Config{Path: path, Capacity: 4096})
	assert.ErrorIs(t, err, backing.ErrLocked)

	// NoLock opens bypass the advisory lock
	other, err := Open(Config{Path: path, Capacity: 4096, NoLock: true})
	require.NoError(t, err)
	assert.NoError(t, other.Close())
}
