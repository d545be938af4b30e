package handlers

import (
	"net/http"
)

// HealthHandler handles health check endpoints.
//
//   - Liveness probe: is the server process running?
//   - Readiness probe: is the disk open and accepting requests?
type HealthHandler struct {
	disk Disk
}

// NewHealthHandler creates a new health handler.
//
// disk may be nil, in which case the readiness probe reports unhealthy.
func NewHealthHandler(disk Disk) *HealthHandler {
	return &HealthHandler{disk: disk}
}

// Liveness handles GET /health.
//
// Returns 200 OK as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "rotdisk",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 Service Unavailable when no disk is attached or the device
// has begun closing.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.disk == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("disk not attached"))
		return
	}

	info := h.disk.Info()
	if info.Closing {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("device is closing"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"sectors":    info.Sectors,
		"pending":    info.Pending,
		"pins":       info.Pins,
		"failed":     info.Failed,
		"rejected":   info.Rejected,
		"last_error": info.LastError,
	}))
}
