package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides health and readiness checks. Readiness also
// tracks data staleness: a venue adapter that is connected but has
// stopped delivering events (a stuck websocket read, an exchange outage)
// should fail readiness the same as a component that never started, so
// an orchestrator restarts it instead of leaving it silently stalled.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	lastEventAtUnixNano atomic.Int64
	stalenessThreshold  time.Duration
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetStalenessThreshold configures how long Ready may go without a
// MarkEventSeen call before it reports not-ready. A zero threshold (the
// default) disables the staleness check entirely.
func (h *HealthChecker) SetStalenessThreshold(d time.Duration) {
	h.stalenessThreshold = d
}

// MarkEventSeen records that a venue event was just dispatched, resetting
// the staleness clock. Called from the adapter-to-pipeline bridge on
// every event.
func (h *HealthChecker) MarkEventSeen() {
	h.lastEventAtUnixNano.Store(time.Now().UnixNano())
}

// stale reports whether it has been longer than stalenessThreshold since
// the last MarkEventSeen call. Before the first event is ever seen, it is
// measured against startTime so a slow-starting adapter isn't flagged
// stale before it has had a chance to connect.
func (h *HealthChecker) stale() bool {
	if h.stalenessThreshold <= 0 {
		return false
	}
	last := h.lastEventAtUnixNano.Load()
	if last == 0 {
		return time.Since(h.startTime) > h.stalenessThreshold
	}
	return time.Since(time.Unix(0, last)) > h.stalenessThreshold
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Message string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		if h.stale() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "no venue events dispatched within the staleness threshold",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
