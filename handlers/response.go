package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/you/transit-analytics/internal/logging"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeMissingParam answers 400 for a required query parameter.
func writeMissingParam(w http.ResponseWriter, name string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: name + " parameter is required",
	})
}

// writeInternalError logs err and answers 500 carrying its description.
func writeInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	logging.LogError(logging.FromContext(r.Context()), message, err,
		slog.String("path", r.URL.Path))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: message,
		Details: map[string]interface{}{
			"internal": err.Error(),
		},
	})
}
