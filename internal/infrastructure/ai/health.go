package ai

import (
	"context"
	"time"

	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Overall health states
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// ProviderHealth is the health check result for one roster entry
type ProviderHealth struct {
	Name    string        `json:"name"`
	Model   string        `json:"model"`
	Healthy bool          `json:"healthy"`
	Detail  string        `json:"detail"`
	Latency time.Duration `json:"latency_ns"`
}

// HealthStatus summarises the roster. Providers keep roster order.
type HealthStatus struct {
	Overall   string           `json:"overall"`
	Providers []ProviderHealth `json:"providers"`
	LastCheck time.Time        `json:"last_check"`
}

// HealthChecker checks every provider in the roster concurrently
type HealthChecker struct {
	providers []outbound.LLMProvider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewHealthChecker creates a health checker for the roster
func NewHealthChecker(providers []outbound.LLMProvider, timeout time.Duration, logger *zap.Logger) *HealthChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthChecker{
		providers: providers,
		timeout:   timeout,
		logger:    logger.Named("ai-health"),
	}
}

// CheckHealth checks all providers. A single healthy provider is enough
// to serve requests, so the overall status is degraded rather than
// critical until every provider fails.
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Providers: make([]ProviderHealth, len(h.providers)),
		LastCheck: time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range h.providers {
		g.Go(func() error {
			status.Providers[i] = h.check(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	healthy := 0
	for _, p := range status.Providers {
		if p.Healthy {
			healthy++
		}
	}

	switch {
	case healthy == 0:
		status.Overall = StatusCritical
	case healthy < len(status.Providers):
		status.Overall = StatusDegraded
	default:
		status.Overall = StatusHealthy
	}

	h.logger.Info("AI health check completed",
		zap.String("overall_status", status.Overall),
		zap.Int("healthy_providers", healthy),
		zap.Int("total_providers", len(status.Providers)))

	return status
}

func (h *HealthChecker) check(ctx context.Context, p outbound.LLMProvider) ProviderHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := p.HealthCheck(checkCtx)
	result := ProviderHealth{
		Name:    p.Name(),
		Model:   p.Model(),
		Healthy: err == nil,
		Detail:  "Healthy",
		Latency: time.Since(start),
	}
	if err != nil {
		result.Detail = err.Error()
		h.logger.Warn("Provider health check failed",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	return result
}
