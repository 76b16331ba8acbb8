package opsapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chat_dispatch/internal/metrics"
	"chat_dispatch/internal/pipeline"
)

// RunControl is the daemon surface the ops API drives.
type RunControl interface {
	// LastSummary returns the most recent run summary, if any run happened.
	LastSummary() (pipeline.Summary, bool)
	// TriggerRun requests an immediate run; false when one is in progress.
	TriggerRun() bool
}

// Router serves the daemon's small operational API.
type Router struct {
	control RunControl
	stats   *metrics.Metrics
}

func NewRouter(control RunControl, stats *metrics.Metrics) *Router {
	return &Router{control: control, stats: stats}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", rt.health)
	r.Get("/ops/status", rt.status)
	r.Post("/ops/run", rt.run)
	return r
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) status(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"metrics": rt.stats.Snapshot()}
	if last, ok := rt.control.LastSummary(); ok {
		body["last_run"] = last
	}
	respondJSON(w, http.StatusOK, body)
}

func (rt *Router) run(w http.ResponseWriter, _ *http.Request) {
	if !rt.control.TriggerRun() {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "run already in progress"})
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
