package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder swaps in an in-memory span recorder for the duration of a test.
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	mu.Lock()
	prev := tracer
	tracer = tp.Tracer(instrumentationName)
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "rotdisk", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestNoOpHelpers(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		newCtx, span := StartSpan(ctx, "test.operation")
		AddEvent(newCtx, "test.event")
		SetAttributes(newCtx, Sector(1))
		RecordError(newCtx, nil)
		RecordError(newCtx, errors.New("boom"))
		span.End()
	})

	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
}

func TestSampler(t *testing.T) {
	assert.True(t, strings.HasPrefix(sampler(1.0).Description(), "ParentBased{root:AlwaysOnSampler"))
	assert.True(t, strings.HasPrefix(sampler(0).Description(), "ParentBased{root:AlwaysOffSampler"))
	assert.True(t, strings.HasPrefix(sampler(0.25).Description(), "ParentBased{root:TraceIDRatioBased"))
}

func TestStartRequestSpan(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartRequestSpan(context.Background(), "req-1", "write", 7, Bytes(4096), Segments(1))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	RecordError(ctx, errors.New("short write"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, SpanRequest, s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "short write", s.Status().Description)

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "req-1", attrs[AttrRequestID].AsString())
	assert.Equal(t, "write", attrs[AttrOperation].AsString())
	assert.Equal(t, int64(7), attrs[AttrSector].AsInt64())
	assert.Equal(t, int64(4096), attrs[AttrBytes].AsInt64())
	assert.Equal(t, int64(1), attrs[AttrSegments].AsInt64())
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr attribute.KeyValue
		key  string
		want any
	}{
		{"RequestID", RequestID("abc"), AttrRequestID, "abc"},
		{"Operation", Operation("read"), AttrOperation, "read"},
		{"Sector", Sector(12), AttrSector, int64(12)},
		{"Offset", Offset(49152), AttrOffset, int64(49152)},
		{"Bytes", Bytes(4096), AttrBytes, int64(4096)},
		{"Segments", Segments(3), AttrSegments, int64(3)},
		{"Status", Status("out_of_range"), AttrStatus, "out_of_range"},
		{"WorkerID", WorkerID(2), AttrWorkerID, int64(2)},
		{"QueueWaitMs", QueueWaitMs(1.5), AttrQueueWait, 1.5},
		{"Source", Source("api"), AttrSource, "api"},
		{"ClientAddr", ClientAddr("10.0.0.1:5555"), AttrClientAddr, "10.0.0.1:5555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
			assert.Equal(t, tt.want, tt.attr.Value.AsInterface())
		})
	}
}

func TestParseProfileType(t *testing.T) {
	for _, name := range []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines", "mutex_count", "mutex_duration", "block_count", "block_duration"} {
		_, err := parseProfileType(name)
		assert.NoError(t, err, name)
	}

	_, err := parseProfileType("heapdump")
	assert.Error(t, err)
}

func TestInitProfilingDisabled(t *testing.T) {
	stop, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, stop())
	assert.False(t, IsProfilingEnabled())
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"nope"}})
	assert.Error(t, err)
}
