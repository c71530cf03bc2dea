package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports service liveness and backend reachability.
type HealthHandler struct {
	startedAt time.Time
	ping      func(r *http.Request) error
}

// NewHealthHandler creates a health endpoint handler. ping checks the
// key-value backend and may be nil when there is nothing to check.
func NewHealthHandler(startedAt time.Time, ping func(r *http.Request) error) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, ping: ping}
}

// Check serves GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.ping != nil {
		if err := h.ping(r); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["backend"] = err.Error()
		}
	}
	writeJSON(w, status, body)
}
