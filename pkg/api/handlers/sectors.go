package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/rotdisk/internal/logger"
	"github.com/marmos91/rotdisk/internal/telemetry"
	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// Disk is the part of an open disk the API needs.
type Disk interface {
	ReadSectors(ctx context.Context, sector uint64, count int) ([]byte, error)
	WriteSectors(ctx context.Context, sector uint64, data []byte) error
	Info() blockdev.Info
}

// SectorHandler reads and writes raw sectors.
//
// Bodies are application/octet-stream. Data is returned decoded; the backing
// file holds the transformed bytes.
type SectorHandler struct {
	disk        Disk
	maxTransfer int64
}

// NewSectorHandler creates a sector handler. maxTransfer bounds a single
// read or write in bytes.
func NewSectorHandler(disk Disk, maxTransfer int64) *SectorHandler {
	return &SectorHandler{disk: disk, maxTransfer: maxTransfer}
}

// Read handles GET /api/v1/sectors/{sector}?count=N.
func (h *SectorHandler) Read(w http.ResponseWriter, r *http.Request) {
	sector, err := sectorParam(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	count, err := countParam(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	ss := int64(h.disk.Info().SectorSize)
	if ss > 0 && int64(count) > h.maxTransfer/ss {
		RequestTooLarge(w, fmt.Sprintf("read of %d sectors exceeds the %d byte transfer limit", count, h.maxTransfer))
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanHTTPRead)
	defer span.End()
	span.SetAttributes(telemetry.Sector(sector), telemetry.Bytes(int64(count)*ss), telemetry.ClientAddr(r.RemoteAddr))
	ctx = requestContext(ctx, r, blockdev.OpRead, sector)

	data, err := h.disk.ReadSectors(ctx, sector, count)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.DebugCtx(ctx, "Sector read failed", logger.KeyCount, count, logger.KeyError, err)
		writeDeviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Write handles PUT /api/v1/sectors/{sector}. The body is written starting
// at sector; a trailing partial sector only overwrites its leading bytes.
func (h *SectorHandler) Write(w http.ResponseWriter, r *http.Request) {
	sector, err := sectorParam(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if r.ContentLength > h.maxTransfer {
		RequestTooLarge(w, fmt.Sprintf("body of %d bytes exceeds the %d byte transfer limit", r.ContentLength, h.maxTransfer))
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxTransfer+1))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}
	if int64(len(data)) > h.maxTransfer {
		RequestTooLarge(w, fmt.Sprintf("body exceeds the %d byte transfer limit", h.maxTransfer))
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanHTTPWrite)
	defer span.End()
	span.SetAttributes(telemetry.Sector(sector), telemetry.Bytes(int64(len(data))), telemetry.ClientAddr(r.RemoteAddr))
	ctx = requestContext(ctx, r, blockdev.OpWrite, sector)

	if err := h.disk.WriteSectors(ctx, sector, data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.DebugCtx(ctx, "Sector write failed", logger.KeyError, err)
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"sector": sector,
		"bytes":  len(data),
	}))
}

// requestContext tags ctx with the HTTP request id and the "api" source so
// that the dispatcher's logs and spans can be correlated with the call.
func requestContext(ctx context.Context, r *http.Request, op blockdev.Op, sector uint64) context.Context {
	lc := logger.NewLogContext(middleware.GetReqID(r.Context()), op.String(), sector).WithSource("api")
	return logger.WithContext(ctx, lc)
}

// DeviceHandler reports the device geometry and queue state.
type DeviceHandler struct {
	disk Disk
}

// NewDeviceHandler creates a device handler.
func NewDeviceHandler(disk Disk) *DeviceHandler {
	return &DeviceHandler{disk: disk}
}

// Info handles GET /api/v1/device.
func (h *DeviceHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.disk.Info()))
}
