package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
	"git.home.luguber.info/inful/sitepublisher/internal/version"
)

// StatusProvider reports the state of the publish pipeline.
type StatusProvider interface {
	TargetIDs() []string
	TriggerEnabled() bool
	Preflight(targetIDs ...string) error
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	status       StatusProvider
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(status StatusProvider) *MonitoringHandlers {
	return &MonitoringHandlers{
		status:       status,
		startTime:    time.Now(),
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck reports liveness. Missing store configuration is reported as
// "degraded" with a 200 so the process is not restarted for an operator error.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r, h.errorAdapter, http.MethodGet, http.MethodHead)
		return
	}

	health := responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
		Targets:   []string{},
	}
	if h.status == nil {
		health.Status = "degraded"
		health.Problem = "content store not configured"
	} else {
		health.Targets = h.status.TargetIDs()
		health.TriggerEnabled = h.status.TriggerEnabled()
		if err := h.status.Preflight(); err != nil {
			health.Status = "degraded"
			health.Problem = err.Error()
		}
	}
	writeJSON(w, r, http.StatusOK, health)
}
