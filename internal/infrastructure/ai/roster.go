// Package ai assembles the ordered provider roster and checks its health
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/ai/gemini"
	"github.com/nutriplan/mealplan/internal/infrastructure/ai/ollama"
	"github.com/nutriplan/mealplan/internal/infrastructure/ai/openai"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a provider's request budget is spent
var ErrRateLimited = errors.New("provider rate limit exceeded")

// NewRoster builds providers in configuration order. The order is the
// fallback order used by the invoker.
func NewRoster(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) ([]outbound.LLMProvider, error) {
	roster := make([]outbound.LLMProvider, 0, len(cfg.Providers))
	seen := make(map[string]struct{}, len(cfg.Providers))

	for i, pc := range cfg.Providers {
		if _, dup := seen[pc.Name]; dup {
			return nil, fmt.Errorf("provider %d: duplicate name %q", i, pc.Name)
		}
		seen[pc.Name] = struct{}{}

		provider, err := newProvider(ctx, pc, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %d (%s): %w", i, pc.Name, err)
		}
		if pc.RequestsPerMinute > 0 {
			provider = NewRateLimited(provider, pc.RequestsPerMinute)
		}
		roster = append(roster, provider)
	}

	logger.Info("Provider roster assembled", zap.Strings("order", names(roster)))
	return roster, nil
}

func newProvider(ctx context.Context, pc config.ProviderConfig, logger *zap.Logger) (outbound.LLMProvider, error) {
	switch pc.Kind {
	case config.ProviderKindOpenAI:
		return openai.NewClient(pc, logger), nil
	case config.ProviderKindOllama:
		return ollama.NewClient(pc, logger), nil
	case config.ProviderKindGemini:
		return gemini.NewClient(ctx, pc, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

func names(providers []outbound.LLMProvider) []string {
	out := make([]string, len(providers))
	for i, p := range providers {
		out[i] = p.Name()
	}
	return out
}

// RateLimited caps the request rate of a provider. A call that would
// exceed the budget fails immediately so the invoker moves on.
type RateLimited struct {
	outbound.LLMProvider
	limiter *rate.Limiter
}

// NewRateLimited wraps provider with a requests-per-minute budget
func NewRateLimited(provider outbound.LLMProvider, perMinute int) *RateLimited {
	return &RateLimited{
		LLMProvider: provider,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Generate forwards to the wrapped provider when budget remains
func (r *RateLimited) Generate(ctx context.Context, req outbound.LLMRequest) (string, error) {
	if !r.limiter.Allow() {
		return "", fmt.Errorf("%s: %w", r.Name(), ErrRateLimited)
	}
	return r.LLMProvider.Generate(ctx, req)
}
