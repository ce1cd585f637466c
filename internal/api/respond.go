package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// successEnvelope wraps every successful API response.
type successEnvelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// errorEnvelope wraps every failed API response.
type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("encoding response", "error", err)
	}
}

func respondData(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	respondJSON(w, logger, status, successEnvelope{Data: data})
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, msg, details string) {
	respondJSON(w, logger, status, errorEnvelope{Error: msg, Details: details})
}
