package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/bremersee/authman/internal/observability/logger"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type HealthController struct {
	checks  map[string]Check
	version string
}

func NewHealthController(version string, checks map[string]Check) *HealthController {
	return &HealthController{checks: checks, version: version}
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// Healthz handles GET /healthz (liveness).
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: c.version})
}

// Readyz handles GET /readyz; any failing check makes the instance unavailable.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ready", Version: c.version, Components: map[string]string{}}
	for _, name := range names {
		if err := c.checks[name](ctx); err != nil {
			log.Warn("readiness check failed", logger.Component(name), logger.Err(err))
			resp.Components[name] = "down"
			resp.Status = "unavailable"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
