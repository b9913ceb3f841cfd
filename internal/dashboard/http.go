package dashboard

import (
	"net/http"
	"time"
)

const (
	SnapshotPath = "/api/snapshot"
	RefreshPath  = "/api/refresh"
)

type stateResponse struct {
	Loading  bool      `json:"loading"`
	Clock    time.Time `json:"clock"`
	Snapshot *Snapshot `json:"snapshot"`
	Error    string    `json:"error,omitempty"`
}

// SnapshotHandler serves the latest snapshot. Before the first snapshot
// it answers 503 with loading set.
func (a *Aggregator) SnapshotHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		a.writeState(w, "")
	})
}

// RefreshHandler runs a cycle immediately and returns the resulting state.
// A failed cycle is reported in the error field alongside the snapshot
// that stays published.
func (a *Aggregator) RefreshHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		var msg string

		if _, err := a.Refresh(r.Context()); err != nil {
			msg = err.Error()
		}

		a.writeState(w, msg)
	})
}

func (a *Aggregator) writeState(w http.ResponseWriter, msg string) {
	a.mu.RLock()
	resp := stateResponse{
		Loading:  a.loadingLocked(),
		Clock:    a.clock,
		Snapshot: a.snapshot,
		Error:    msg,
	}
	a.mu.RUnlock()

	body, err := json.Marshal(resp)
	if err != nil {
		a.log.WithError(err).Error("Failed to encode snapshot")
		http.Error(w, "encoding snapshot", http.StatusInternalServerError)

		return
	}

	status := http.StatusOK
	if resp.Snapshot == nil {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
