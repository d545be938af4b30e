package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)
	assert.ErrorIs(t, wrapError(promptui.ErrAbort), ErrAborted)

	other := errors.New("tty gone")
	assert.Equal(t, other, wrapError(other))
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(fmt.Errorf("init: %w", promptui.ErrInterrupt)))
	assert.False(t, IsAborted(errors.New("other")))
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Overwrite?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmed(t *testing.T) {
	tests := []struct {
		name       string
		result     string
		err        error
		defaultYes bool
		want       bool
		wantErr    error
	}{
		{"yes", "y", nil, false, true, nil},
		{"yes word", "YES", nil, false, true, nil},
		{"no", "n", nil, true, false, nil},
		{"empty default no", "", promptui.ErrAbort, false, false, nil},
		{"empty default yes", "", promptui.ErrAbort, true, true, nil},
		{"declined", "n", promptui.ErrAbort, true, false, nil},
		{"interrupt", "", promptui.ErrInterrupt, true, false, ErrAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := confirmed(tt.result, tt.err, tt.defaultYes)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirmOverwrite(t *testing.T) {
	dir := t.TempDir()

	ok, err := ConfirmOverwrite(filepath.Join(dir, "config.yaml"), false)
	require.NoError(t, err)
	assert.True(t, ok, "a missing file needs no confirmation")

	existing := filepath.Join(dir, "existing.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("device: {}\n"), 0600))
	ok, err = ConfirmOverwrite(existing, true)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ConfirmOverwrite(dir, true)
	assert.ErrorContains(t, err, "is a directory")
}
