package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is a dependency that can report whether it is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db      HealthChecker
	cache   HealthChecker
	storage HealthChecker
}

// NewHealthHandler takes nil for any dependency that is not configured.
func NewHealthHandler(db, cache, storage HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		storage: storage,
	}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz answers 200 while the process is up. It never touches
// dependencies.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// readyTimeout bounds all dependency pings of one readiness probe.
const readyTimeout = 5 * time.Second

// Readyz pings postgres, redis and attachment storage. Any failure turns
// the probe into a 503; unconfigured dependencies do not count.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	for name, c := range map[string]HealthChecker{"postgres": h.db, "redis": h.cache, "storage": h.storage} {
		if c == nil {
			resp.Checks[name] = "not configured"
			continue
		}
		if err := c.Ping(ctx); err != nil {
			resp.Checks[name] = "error: " + err.Error()
			resp.Status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, code, resp)
}
