package output

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/marmos91/rotdisk/internal/bytesize"
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// DeviceInfo renders blockdev.Info as a two-column table. JSON and YAML use
// the underlying struct tags.
type DeviceInfo blockdev.Info

func (d DeviceInfo) Headers() []string {
	return []string{"Property", "Value"}
}

func (d DeviceInfo) Rows() [][]string {
	rows := [][]string{
		{"Path", d.Path},
		{"Capacity", fmt.Sprintf("%s (%d bytes)", bytesize.ByteSize(d.Bytes), d.Bytes)},
		{"Sector size", strconv.FormatUint(uint64(d.SectorSize), 10)},
		{"Sectors", strconv.FormatUint(d.Sectors, 10)},
		{"Partitions", strconv.Itoa(d.Partitions)},
		{"Transform", d.Transform},
	}
	if d.Workers > 0 {
		rows = append(rows,
			[]string{"Workers", strconv.Itoa(d.Workers)},
			[]string{"Queue depth", strconv.Itoa(d.QueueDepth)},
			[]string{"Pending", strconv.Itoa(d.Pending)},
			[]string{"Completed", strconv.Itoa(d.Completed)},
			[]string{"Failed", strconv.Itoa(d.Failed)},
			[]string{"Rejected", strconv.Itoa(d.Rejected)},
		)
	}
	if d.LastError != "" {
		rows = append(rows, []string{"Last error", d.LastError})
	}
	return rows
}

// HexDump writes data in canonical hex+ASCII form with offsets starting at
// base.
func HexDump(w io.Writer, data []byte, base int64) error {
	const width = 16
	for off := 0; off < len(data); off += width {
		end := min(off+width, len(data))
		line := data[off:end]

		if _, err := fmt.Fprintf(w, "%08x  %-47s  |%s|\n", base+int64(off), spacedHex(line), printable(line)); err != nil {
			return err
		}
	}
	return nil
}

func spacedHex(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	for i, c := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = hex.AppendEncode(out, []byte{c})
	}
	return string(out)
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		out[i] = c
	}
	return string(out)
}
