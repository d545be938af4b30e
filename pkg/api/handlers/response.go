package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON envelope for every non-binary response.
//
//   - Status is "healthy", "unhealthy", "ok" or "error"
//   - Timestamp is the response time in UTC
//   - Data carries the payload (optional)
//   - Error carries the failure message (optional)
//   - Kind carries the failure classification for device errors (optional)
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      string      `json:"kind,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out; nothing else can be reported.
		return
	}
}

func healthyResponse(data interface{}) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

func okResponse(data interface{}) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg, kind string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg, Kind: kind}
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse(msg, ""))
}

// RequestTooLarge writes a 413 error response.
func RequestTooLarge(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(msg, ""))
}
