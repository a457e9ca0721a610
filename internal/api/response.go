package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const msgNotFound = "Not found."

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteDetail writes an error response in the form {"detail": message}
func WriteDetail(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	WriteJSON(w, status, map[string]string{"detail": message}, logger)
}
