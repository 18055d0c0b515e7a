package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError emits the API error envelope. Handlers use handlers.JSONError for the same shape.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
