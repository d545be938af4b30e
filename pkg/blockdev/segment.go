package blockdev

import (
	"errors"
	"fmt"

	"github.com/marmos91/rotdisk/pkg/bufpool"
)

// transferSegment moves one segment between the caller and the store at the
// absolute byte offset off. The segment itself is never transformed in place:
// all encoding happens in a scratch buffer, so a write leaves the caller's
// data untouched and a failed read leaves the destination unmodified.
//
// The caller holds ioMu and has already bounds-checked the segment.
func (d *Device) transferSegment(op Op, seg []byte, off int64) *Error {
	if !op.Valid() {
		return newError(op, KindInvalidArgument, 0, off, fmt.Errorf("unsupported operation %s", op))
	}

	scratch, err := d.pool.Get(len(seg))
	if err != nil {
		kind := KindIO
		if errors.Is(err, bufpool.ErrExhausted) {
			kind = KindResourceExhausted
		}
		return newError(op, kind, 0, off, fmt.Errorf("scratch buffer of %d bytes: %w", len(seg), err))
	}
	defer d.pool.Put(scratch)

	switch op {
	case OpWrite:
		copy(scratch, seg)
		d.codec.Encode(scratch)
		if err := d.store.WriteAt(scratch, off); err != nil {
			return newError(op, KindIO, 0, off, err)
		}

	case OpRead:
		if err := d.store.ReadAt(scratch, off); err != nil {
			return newError(op, KindIO, 0, off, err)
		}
		d.codec.Decode(scratch)
		copy(seg, scratch)
	}
	return nil
}
