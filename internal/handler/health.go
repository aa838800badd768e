package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
)

// HealthHandler serves the uptime monitoring endpoint.
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports service health, including database reachability.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	payload := map[string]string{"status": "ok"}

	if err := h.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		payload["status"] = "degraded"
		payload["database"] = "unreachable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
