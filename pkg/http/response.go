package http

import (
	"encoding/json"
	"net/http"
)

// ActionResponse is returned by every write endpoint
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Count   *int64 `json:"count,omitempty"`
}

// WriteJSON writes data as JSON. Vault responses are never cached.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteAction writes a successful ActionResponse
func WriteAction(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ActionResponse{Success: true, Message: message})
}

// WriteActionCount writes a successful ActionResponse with an affected count
func WriteActionCount(w http.ResponseWriter, message string, count int64) {
	WriteJSON(w, http.StatusOK, ActionResponse{Success: true, Message: message, Count: &count})
}
