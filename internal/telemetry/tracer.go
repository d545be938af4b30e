package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for block device spans.
const (
	AttrRequestID  = "blk.request_id"
	AttrOperation  = "blk.op"
	AttrSector     = "blk.sector"
	AttrOffset     = "blk.offset"
	AttrBytes      = "blk.bytes"
	AttrSegments   = "blk.segments"
	AttrStatus     = "blk.status"
	AttrWorkerID   = "blk.worker_id"
	AttrQueueWait  = "blk.queue_wait_ms"
	AttrSource     = "blk.source"
	AttrClientAddr = "client.address"
)

// Span names.
const (
	SpanRequest     = "blk.request"
	SpanHTTPRead    = "http.read_sectors"
	SpanHTTPWrite   = "http.write_sectors"
	SpanDeviceClose = "blk.close"
)

// RequestID returns an attribute for a request identifier.
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrRequestID, id)
}

// Operation returns an attribute for the request operation (read, write).
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Sector returns an attribute for the starting sector.
func Sector(sector uint64) attribute.KeyValue {
	return attribute.Int64(AttrSector, int64(sector))
}

// Offset returns an attribute for a byte offset in the backing file.
func Offset(off int64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, off)
}

// Bytes returns an attribute for the request length in bytes.
func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

// Segments returns an attribute for the segment count.
func Segments(n int) attribute.KeyValue {
	return attribute.Int(AttrSegments, n)
}

// Status returns an attribute for the completion status.
func Status(s string) attribute.KeyValue {
	return attribute.String(AttrStatus, s)
}

// WorkerID returns an attribute for the worker that executed a request.
func WorkerID(id int) attribute.KeyValue {
	return attribute.Int(AttrWorkerID, id)
}

// QueueWaitMs returns an attribute for time spent enqueued.
func QueueWaitMs(ms float64) attribute.KeyValue {
	return attribute.Float64(AttrQueueWait, ms)
}

// Source returns an attribute for the submitting front end.
func Source(s string) attribute.KeyValue {
	return attribute.String(AttrSource, s)
}

// ClientAddr returns an attribute for a remote client address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// StartRequestSpan starts the span covering one executed block request.
func StartRequestSpan(ctx context.Context, requestID, op string, sector uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		RequestID(requestID),
		Operation(op),
		Sector(sector),
	}, attrs...)
	return StartSpan(ctx, SpanRequest, trace.WithAttributes(all...), trace.WithSpanKind(trace.SpanKindInternal))
}
