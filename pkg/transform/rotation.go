package transform

// alphabetLen is the number of letters in each case alphabet.
const alphabetLen = 26

// Codec transforms buffers in place. Encode and Decode must be inverses.
type Codec interface {
	Encode(buf []byte)
	Decode(buf []byte)
}

// Rotation rotates ASCII letters by Key positions. Any integer key is valid;
// the effective shift is Key mod 26.
type Rotation struct {
	Key int
}

var _ Codec = Rotation{}

// NewRotation returns a Rotation for key.
func NewRotation(key int) Rotation {
	return Rotation{Key: key}
}

// Shift returns the effective forward shift in [0, 26).
func (r Rotation) Shift() int {
	s := r.Key % alphabetLen
	if s < 0 {
		s += alphabetLen
	}
	return s
}

// Encode rotates every letter of buf forward by the key.
// The whole buffer is transformed, including bytes after any zero byte.
func (r Rotation) Encode(buf []byte) {
	rotate(buf, r.Shift())
}

// Decode rotates every letter of buf backward by the key.
func (r Rotation) Decode(buf []byte) {
	rotate(buf, (alphabetLen-r.Shift())%alphabetLen)
}

func rotate(buf []byte, shift int) {
	if shift == 0 {
		return
	}
	for i, c := range buf {
		switch {
		case c >= 'a' && c <= 'z':
			buf[i] = 'a' + byte((int(c-'a')+shift)%alphabetLen)
		case c >= 'A' && c <= 'Z':
			buf[i] = 'A' + byte((int(c-'A')+shift)%alphabetLen)
		}
	}
}

// Identity is a Codec that leaves buffers unchanged. It is used to inspect
// the stored (encoded) bytes of a device.
type Identity struct{}

var _ Codec = Identity{}

// Encode does nothing.
func (Identity) Encode([]byte) {}

// Decode does nothing.
func (Identity) Decode([]byte) {}
