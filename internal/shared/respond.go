package shared

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope returned by every JSON endpoint.
type APIResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Permissions any    `json:"permissions,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a failure envelope with the given status and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, APIResponse{Success: false, Message: message})
}
