// Package health serves liveness and readiness probes for the prompter
// server.
//
// Liveness (/healthz) only confirms the process answers HTTP. Readiness
// (/readyz) runs the registered [Checker] probes, so a display can tell the
// difference between "server is up" and "server is ready to track" — the
// usual gap being that no script has been loaded yet.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each readiness probe.
const probeTimeout = 2 * time.Second

// Checker is a named readiness probe. Check returns nil when the probed
// subsystem can serve, and an error describing what is missing otherwise.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler answers the probe endpoints. The checker set is fixed at
// construction, so the handler needs no locking.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given checkers. Probes run in the order
// given on every /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// probeReport is the JSON body returned by both endpoints.
type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness. Reaching the handler at all is the check.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, probeReport{Status: "ok"})
}

// Readyz runs every checker and reports 200 only when all pass. Failing
// checks carry their error text so a curl tells the operator what to fix.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	report := probeReport{
		Status: "ok",
		Checks: make(map[string]string, len(h.checkers)),
	}
	code := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			report.Checks[c.Name] = "fail: " + err.Error()
			report.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		report.Checks[c.Name] = "ok"
	}

	respond(w, code, report)
}

func respond(w http.ResponseWriter, code int, report probeReport) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	// Encoding a flat string map cannot realistically fail; ignore the error
	// the same way the http package does for its own error bodies.
	_ = json.NewEncoder(w).Encode(report)
}
