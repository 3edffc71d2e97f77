package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// HealthHandlers handles liveness and readiness probes
type HealthHandlers struct {
	checks  map[string]Checker
	jobs    func() []string
	version string
	started time.Time
}

func NewHealthHandlers(version string, checks map[string]Checker, jobs func() []string) *HealthHandlers {
	if checks == nil {
		checks = map[string]Checker{}
	}
	return &HealthHandlers{
		checks:  checks,
		jobs:    jobs,
		version: version,
		started: time.Now(),
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services,omitempty"`
	Jobs      []string          `json:"jobs,omitempty"`
}

// LivenessCheck answers as long as the process serves requests.
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status("alive"))
}

// ReadinessCheck pings every registered dependency. Any failure makes the
// instance not ready.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := h.status("ready")
	health.Services = make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "not_ready"
			continue
		}
		health.Services[name] = "healthy"
	}
	if h.jobs != nil {
		health.Jobs = h.jobs()
	}

	statusCode := http.StatusOK
	if health.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) status(state string) *HealthStatus {
	return &HealthStatus{
		Status:    state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
}
