package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler serves /healthz responses. The process is healthy when
// the most recent cycle finished within twice the poll interval.
func HealthHandler(tracker *Tracker, pollInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusServiceUnavailable
		snapshot := Snapshot{}
		if tracker != nil {
			snapshot = tracker.Snapshot()
			if tracker.Healthy(time.Now().UTC(), pollInterval) {
				status = http.StatusOK
			}
		}
		writeJSON(w, status, snapshot)
	}
}

// ReadyHandler serves /readyz responses. Readiness flips once the
// first cycle completes and never reverts.
func ReadyHandler(tracker *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusServiceUnavailable
		snapshot := Snapshot{}
		if tracker != nil {
			snapshot = tracker.Snapshot()
			if tracker.Ready() {
				status = http.StatusOK
			}
		}
		writeJSON(w, status, snapshot)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
