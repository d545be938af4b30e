package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging fields for one block I/O request.
type LogContext struct {
	RequestID string    // Request identifier (uuid)
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Operation string    // read, write
	Sector    uint64    // Starting sector
	Source    string    // Submitting front end: api, cli
	StartTime time.Time // For duration calculation
}

// NewLogContext creates a LogContext for the given request.
func NewLogContext(requestID, operation string, sector uint64) *LogContext {
	return &LogContext{
		RequestID: requestID,
		Operation: operation,
		Sector:    sector,
		StartTime: time.Now(),
	}
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// WithSource returns a copy with the submitting front end set.
func (lc *LogContext) WithSource(source string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Source = source
	}
	return c
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

// withContextFields prepends the LogContext fields of ctx to args.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 12+len(args))
	if lc.RequestID != "" {
		out = append(out, KeyRequestID, lc.RequestID)
	}
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.Operation != "" {
		out = append(out, KeyOperation, lc.Operation, KeySector, lc.Sector)
	}
	if lc.Source != "" {
		out = append(out, KeySource, lc.Source)
	}
	return append(out, args...)
}
