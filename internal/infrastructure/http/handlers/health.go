package handlers

import (
	"net/http"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/ai"
	"go.uber.org/zap"
)

// HealthHandlers serves liveness and provider health
type HealthHandlers struct {
	checker *ai.HealthChecker
	version string
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandlers creates the health handlers
func NewHealthHandlers(checker *ai.HealthChecker, version string, logger *zap.Logger) *HealthHandlers {
	return &HealthHandlers{
		checker: checker,
		version: version,
		started: time.Now(),
		logger:  logger.Named("health-api"),
	}
}

// Liveness handles GET /health
func (h *HealthHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Providers handles GET /health/providers. It answers 503 only when no
// provider in the roster is reachable.
func (h *HealthHandlers) Providers(w http.ResponseWriter, r *http.Request) {
	status := h.checker.CheckHealth(r.Context())

	code := http.StatusOK
	if status.Overall == ai.StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, code, status)
}
