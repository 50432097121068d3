package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pong/pkg/metrics"
)

// StatsProvider exposes a snapshot of service counters and settings.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// OpsHandler serves liveness, Prometheus metrics and the service stats.
type OpsHandler struct {
	started time.Time
	stats   StatsProvider
	metrics http.Handler
}

// NewOpsHandler creates an ops handler reporting uptime from now.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	return &OpsHandler{
		started: time.Now(),
		stats:   stats,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// HandleHealth handles GET /healthz.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	})
}

// HandleMetrics handles GET /metrics.
func (h *OpsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleStats handles GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}
