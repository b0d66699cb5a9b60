package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler checks connectivity to both stores
type HealthHandler struct {
	relational Pinger
	documents  Pinger
	timeout    time.Duration
}

// NewHealthHandler creates a new handler over the relational source and
// the document store
func NewHealthHandler(relational, documents Pinger) *HealthHandler {
	return &HealthHandler{relational: relational, documents: documents, timeout: 2 * time.Second}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body := map[string]interface{}{
		"status":         "ok",
		"database":       "connected",
		"document_store": "connected",
		"timestamp":      time.Now().UTC(),
	}
	status := http.StatusOK

	var failures []string
	if err := h.relational.Ping(ctx); err != nil {
		body["database"] = "disconnected"
		failures = append(failures, "database: "+err.Error())
	}
	if err := h.documents.Ping(ctx); err != nil {
		body["document_store"] = "disconnected"
		failures = append(failures, "document_store: "+err.Error())
	}
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
		body["status"] = "error"
		body["errors"] = failures
	}

	writeJSON(w, status, body)
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
