package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response. Stack is set only when
// the server runs outside production.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
	Stack   string `json:"stack,omitempty"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	body.Error = true
	writeJSON(w, status, body)
}
