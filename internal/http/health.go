// v0
// internal/http/health.go
package httpserver

import (
	"net/http"
	"sync/atomic"
)

// HealthState tracks readiness. Liveness is implied by the process serving
// requests; readiness is raised once the listener is up and dropped when
// shutdown starts.
type HealthState struct {
	ready atomic.Bool
}

func NewHealthState() *HealthState {
	return &HealthState{}
}

func (h *HealthState) SetReady(value bool) {
	h.ready.Store(value)
}

func (h *HealthState) Ready() bool {
	return h.ready.Load()
}

func healthLiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})
}

func healthReadyHandler(health *HealthState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if health == nil || !health.Ready() {
			writeText(w, http.StatusServiceUnavailable, "NOT_READY")
			return
		}
		writeText(w, http.StatusOK, "OK")
	})
}
