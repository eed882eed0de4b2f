package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/bjjscore/internal/domain/types"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/metrics"
)

// StatsProvider reports the service summary served at /stats.
type StatsProvider interface {
	GetStats() types.Stats
}

// StatusDependencies feeds the liveness and stats endpoints.
type StatusDependencies interface {
	StatsProvider
	ExportStatus() export.Status
}

// StatusHandler serves /healthz, /stats and /metrics.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

type healthResponse struct {
	Status string       `json:"status"`
	Export export.State `json:"export"`
}

// HandleHealth handles GET /healthz. It stays 200 while an export runs so
// probes do not restart a busy service.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Export: h.deps.ExportStatus().State})
}

// HandleStats handles GET /stats.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.deps.GetStats())
}

// MetricsHandler exposes the service registry without Go runtime collectors.
func (h *StatusHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
