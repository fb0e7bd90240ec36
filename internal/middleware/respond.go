package middleware

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape the dashboard clients read.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// WriteJSON writes result wrapped in an Envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, result any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(Envelope{Status: status, Message: message, Result: result})
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, message, nil)
}
