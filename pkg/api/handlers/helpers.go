package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/rotdisk/pkg/blockdev"
)

// statusForError maps a device error to an HTTP status code.
//
//   - invalid_argument   -> 400 Bad Request
//   - resource_exhausted -> 507 Insufficient Storage
//   - out_of_range       -> 416 Requested Range Not Satisfiable
//   - admission          -> 503 Service Unavailable
//   - io and unclassified errors -> 500 Internal Server Error
//
// A request abandoned because the client went away or the server timed out
// maps to 504.
func statusForError(err error) int {
	if kind, ok := blockdev.KindOf(err); ok {
		switch kind {
		case blockdev.KindInvalidArgument:
			return http.StatusBadRequest
		case blockdev.KindResourceExhausted:
			return http.StatusInsufficientStorage
		case blockdev.KindOutOfRange:
			return http.StatusRequestedRangeNotSatisfiable
		case blockdev.KindAdmission:
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeDeviceError writes err as a JSON error response with its mapped status.
func writeDeviceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	kind := ""
	if k, ok := blockdev.KindOf(err); ok {
		kind = k.String()
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse(err.Error(), kind))
}

// sectorParam parses the {sector} URL parameter.
func sectorParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "sector")
	sector, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sector %q", raw)
	}
	return sector, nil
}

// countParam parses the optional count query parameter (default 1).
func countParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return 1, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return count, nil
}
