package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for the duration of a test.
func captureOutput(t *testing.T, lvl, fmtName string) *bytes.Buffer {
	t.Helper()

	buf := new(bytes.Buffer)

	mu.RLock()
	prevOutput, prevColor, prevFormat := output, useColor, format
	mu.RUnlock()
	prevLevel := level.Level()

	InitWithWriter(buf, lvl, fmtName, false)

	t.Cleanup(func() {
		level.Set(prevLevel)
		InitWithWriter(prevOutput, "", prevFormat, prevColor)
	})
	return buf
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf := captureOutput(t, "DEBUG", "text")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "error message"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "text")

		Debug("debug message")
		Info("info message")

		assert.NotContains(t, buf.String(), "debug message")
		assert.Contains(t, buf.String(), "info message")
	})

	t.Run("ErrorLevelFiltersWarn", func(t *testing.T) {
		buf := captureOutput(t, "ERROR", "text")

		Warn("warn message")
		Error("error message")

		assert.NotContains(t, buf.String(), "warn message")
		assert.Contains(t, buf.String(), "error message")
	})

	t.Run("InvalidLevelIsIgnored", func(t *testing.T) {
		captureOutput(t, "WARN", "text")

		SetLevel("LOUD")
		assert.Equal(t, "WARN", GetLevel())
	})

	t.Run("LevelIsCaseInsensitive", func(t *testing.T) {
		captureOutput(t, "debug", "text")
		assert.Equal(t, "DEBUG", GetLevel())
	})
}

// ============================================================================
// Format Tests
// ============================================================================

func TestFormats(t *testing.T) {
	t.Run("TextFormatRendersKeyValues", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "text")

		Info("request completed", KeySector, uint64(12), KeyOperation, "write")

		line := buf.String()
		assert.Contains(t, line, "[INFO] request completed")
		assert.Contains(t, line, "sector=12")
		assert.Contains(t, line, "op=write")
	})

	t.Run("TextFormatQuotesSpaces", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "text")

		Info("open failed", KeyError, "no such file")

		assert.Contains(t, buf.String(), `error="no such file"`)
	})

	t.Run("JSONFormatIsParseable", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "json")

		Info("device opened", KeyPath, "/tmp/disk.img", KeySectors, 100)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "device opened", rec["msg"])
		assert.Equal(t, "/tmp/disk.img", rec["path"])
		assert.EqualValues(t, 100, rec["sectors"])
	})

	t.Run("InvalidFormatIsIgnored", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "json")

		SetFormat("xml")
		Info("still json")

		assert.True(t, strings.HasPrefix(buf.String(), "{"))
	})

	t.Run("WithAttrsAndGroups", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "text")

		With(KeyWorkerID, 3).WithGroup("req").Info("picked task", "id", "abc")

		line := buf.String()
		assert.Contains(t, line, "worker_id=3")
		assert.Contains(t, line, "req.id=abc")
	})
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("InjectsRequestFields", func(t *testing.T) {
		buf := captureOutput(t, "DEBUG", "text")

		lc := NewLogContext("req-1", "read", 7).WithSource("api")
		ctx := WithContext(context.Background(), lc)

		DebugCtx(ctx, "segment done", KeySegment, 0)

		line := buf.String()
		assert.Contains(t, line, "request_id=req-1")
		assert.Contains(t, line, "op=read")
		assert.Contains(t, line, "sector=7")
		assert.Contains(t, line, "source=api")
		assert.Contains(t, line, "segment=0")
	})

	t.Run("NoContextFields", func(t *testing.T) {
		buf := captureOutput(t, "INFO", "text")

		InfoCtx(context.Background(), "plain")

		assert.NotContains(t, buf.String(), "request_id")
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("a", "write", 1)
		traced := lc.WithTrace("t", "s")

		assert.Empty(t, lc.TraceID)
		assert.Equal(t, "t", traced.TraceID)
		assert.Equal(t, "s", traced.SpanID)
	})

	t.Run("NilContextIsSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Zero(t, lc.DurationMs())
		//nolint:staticcheck // nil context is handled explicitly
		assert.Nil(t, FromContext(nil))
	})
}

// ============================================================================
// Field Helper Tests
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, KeySector, Sector(5).Key)
	assert.Equal(t, int64(4096), Offset(4096).Value.Int64())
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.True(t, Err(nil).Equal(Err(nil)))
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t, "INFO", "text")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Info("concurrent", KeyWorkerID, i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
}
