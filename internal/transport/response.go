package transport

import (
	"encoding/json"
	"net/http"
)

// Successful bodies are wrapped in a {data} envelope; clients unwrap it
// unconditionally, so every 2xx response must go through WriteData.
type DataResponse struct {
	Data interface{} `json:"data"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteData(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, DataResponse{Data: payload})
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRaw replays a pre-encoded envelope, used for cache hits.
func WriteRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
