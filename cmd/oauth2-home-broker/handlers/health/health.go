// Package health reports the health of the broker and its stores.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/wrale/oauth2-home-broker/cmd/oauth2-home-broker/handlers/common"
)

// Checker reports whether a component is operational
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// ProviderChecker reports the configuration state of every provider
type ProviderChecker interface {
	CheckHealth(ctx context.Context) map[string]error
}

// Handler processes health check requests
type Handler struct {
	components  map[string]Checker
	providers   ProviderChecker
	version     string
	environment string
	now         func() time.Time
}

// Config contains handler configuration
type Config struct {
	// Components are checked in name order; any failure marks the service unhealthy
	Components map[string]Checker

	// Providers are reported but never affect the overall status, so an
	// unconfigured optional provider does not take the service down
	Providers ProviderChecker

	Version     string
	Environment string
}

// Response represents the health check response
type Response struct {
	Status      string         `json:"status"`
	Version     string         `json:"version,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
}

// New creates a new health check handler
func New(cfg Config) *Handler {
	return &Handler{
		components:  cfg.Components,
		providers:   cfg.Providers,
		version:     cfg.Version,
		environment: cfg.Environment,
		now:         time.Now,
	}
}

// ServeHTTP handles health check requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Status:      "healthy",
		Version:     h.version,
		Environment: h.environment,
		Timestamp:   h.now().UTC(),
		Details:     make(map[string]any),
	}

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.components[name].CheckHealth(r.Context()); err != nil {
			response.Status = "unhealthy"
			response.Details[name] = map[string]any{
				"status":  "unhealthy",
				"message": err.Error(),
			}
			continue
		}
		response.Details[name] = map[string]any{"status": "healthy"}
	}

	if h.providers != nil {
		providers := make(map[string]any)
		for name, err := range h.providers.CheckHealth(r.Context()) {
			if err != nil {
				providers[name] = map[string]any{"status": "not_configured", "message": err.Error()}
				continue
			}
			providers[name] = map[string]any{"status": "configured"}
		}
		response.Details["providers"] = providers
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	common.WriteJSON(w, status, response)
}
