package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so logs can be aggregated and queried.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Block I/O
	// ========================================================================
	KeyRequestID = "request_id" // Request identifier
	KeyOperation = "op"         // read, write
	KeySector    = "sector"     // Starting sector of a request
	KeySectors   = "sectors"    // Sector count (request length or capacity)
	KeyOffset    = "offset"     // Absolute byte offset in the backing file
	KeyCount     = "count"      // Byte count
	KeySegments  = "segments"   // Number of segments in a request
	KeySegment   = "segment"    // Segment index within a request
	KeyStatus    = "status"     // Completion status (ok or failure kind)

	// ========================================================================
	// Device & Backing Store
	// ========================================================================
	KeyPath       = "path"        // Backing file path
	KeySize       = "size"        // Size in bytes
	KeySectorSize = "sector_size" // Bytes per sector
	KeyWorkers    = "workers"     // Worker pool size
	KeyQueueDepth = "queue_depth" // Dispatch queue capacity
	KeyPending    = "pending"     // Enqueued but not completed tasks
	KeyPins       = "pins"        // Outstanding liveness pins

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeySource     = "source" // Front end that submitted the request: api, cli
	KeyWorkerID   = "worker_id"
)

// RequestID returns a slog.Attr for a request identifier.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Operation returns a slog.Attr for the operation kind.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Sector returns a slog.Attr for a starting sector.
func Sector(s uint64) slog.Attr {
	return slog.Uint64(KeySector, s)
}

// Offset returns a slog.Attr for a byte offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Path returns a slog.Attr for the backing file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error; nil errors produce an empty attr.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr with the milliseconds elapsed since start.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
