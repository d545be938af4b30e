package transform

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Known Vectors
// ============================================================================

func TestRotation_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		key  int
		in   string
		want string
	}{
		{"key 3", 3, "Hello", "Khoor"},
		{"wraps lowercase", 3, "xyz", "abc"},
		{"wraps uppercase", 3, "XYZ", "ABC"},
		{"key 0 is identity", 0, "Hello", "Hello"},
		{"key 26 is identity", 26, "Hello", "Hello"},
		{"key 29 equals key 3", 29, "Hello", "Khoor"},
		{"negative key", -1, "abc", "zab"},
		{"non letters unchanged", 5, "0-9 !@#[`{", "0-9 !@#[`{"},
		{"mixed", 13, "Rot13, World!", "Ebg13, Jbeyq!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := []byte(tt.in)
			NewRotation(tt.key).Encode(buf)
			assert.Equal(t, tt.want, string(buf))

			NewRotation(tt.key).Decode(buf)
			assert.Equal(t, tt.in, string(buf))
		})
	}
}

func TestRotation_Shift(t *testing.T) {
	assert.Equal(t, 3, Rotation{Key: 3}.Shift())
	assert.Equal(t, 0, Rotation{Key: 52}.Shift())
	assert.Equal(t, 25, Rotation{Key: -1}.Shift())
	assert.Equal(t, 23, Rotation{Key: -29}.Shift())
	assert.Equal(t, 0, Rotation{Key: 0}.Shift())
}

// ============================================================================
// Full-Length Transform
// ============================================================================

func TestRotation_TransformsPastZeroBytes(t *testing.T) {
	buf := []byte("ab\x00cd\x00\x00EF")
	NewRotation(1).Encode(buf)

	assert.Equal(t, []byte("bc\x00de\x00\x00FG"), buf)
}

func TestRotation_EmptyBuffer(t *testing.T) {
	var buf []byte
	assert.NotPanics(t, func() {
		NewRotation(7).Encode(buf)
		NewRotation(7).Decode(buf)
	})
}

// ============================================================================
// Properties
// ============================================================================

func TestRotation_RoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	keys := []int{0, 1, 3, 13, 25, 26, 27, -1, -26, -27, 1000003, math.MaxInt32, math.MinInt32}

	for i := 0; i < 200; i++ {
		keys = append(keys, rng.Int()-rng.Int())
	}

	for _, key := range keys {
		orig := make([]byte, 1+rng.Intn(512))
		for i := range orig {
			orig[i] = byte(0x20 + rng.Intn(0x7f-0x20)) // printable ASCII
		}

		buf := bytes.Clone(orig)
		r := NewRotation(key)
		r.Encode(buf)
		require.Len(t, buf, len(orig))
		r.Decode(buf)
		require.Equal(t, orig, buf, "key %d", key)
	}
}

func TestRotation_NonLettersUnchangedProperty(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	for _, key := range []int{1, 3, 12, 25, -7} {
		buf := bytes.Clone(all)
		NewRotation(key).Encode(buf)

		for i, c := range all {
			isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
			if isLetter {
				assert.NotEqual(t, c, buf[i], "letter %q must move with key %d", c, key)
				continue
			}
			assert.Equal(t, c, buf[i], "byte 0x%02x must pass through with key %d", c, key)
		}
	}
}

func TestRotation_PreservesCase(t *testing.T) {
	buf := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	NewRotation(11).Encode(buf)

	for i, c := range buf[:26] {
		assert.True(t, c >= 'a' && c <= 'z', "index %d", i)
	}
	for i, c := range buf[26:] {
		assert.True(t, c >= 'A' && c <= 'Z', "index %d", i)
	}
}

func TestIdentity(t *testing.T) {
	buf := []byte("Hello")
	var c Codec = Identity{}
	c.Encode(buf)
	c.Decode(buf)
	assert.Equal(t, "Hello", string(buf))
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkRotation_EncodeSector(b *testing.B) {
	buf := bytes.Repeat([]byte("Hello, block device! "), 4096/21+1)[:4096]
	r := NewRotation(3)

	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Encode(buf)
	}
}
