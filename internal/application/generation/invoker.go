// Package generation drives the provider roster and turns model output into
// validated meal plans.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// Result is a validated plan and the roster entry that produced it
type Result struct {
	Plan     mealplan.MealPlan
	Provider string
	Model    string
	Attempts []Attempt
}

// Invoker tries providers in roster order until one yields a valid plan.
// Attempts are sequential; the roster is never reordered.
type Invoker struct {
	providers []outbound.LLMProvider
	validator *Validator
	logger    *zap.Logger
}

// NewInvoker creates a fallback invoker over an ordered provider list
func NewInvoker(providers []outbound.LLMProvider, validator *Validator, logger *zap.Logger) *Invoker {
	roster := make([]outbound.LLMProvider, len(providers))
	copy(roster, providers)
	return &Invoker{
		providers: roster,
		validator: validator,
		logger:    logger.Named("invoker"),
	}
}

// Providers returns the roster in attempt order
func (inv *Invoker) Providers() []outbound.LLMProvider {
	out := make([]outbound.LLMProvider, len(inv.providers))
	copy(out, inv.providers)
	return out
}

// Invoke runs req against the roster. A provider error or a response that
// fails validation moves on to the next provider; the first valid plan wins.
// When every provider fails the error is an *ExhaustedError.
func (inv *Invoker) Invoke(ctx context.Context, req outbound.LLMRequest) (*Result, error) {
	attempts := make([]Attempt, 0, len(inv.providers))

	for i, p := range inv.providers {
		if err := ctx.Err(); err != nil {
			inv.logger.Warn("Generation cancelled before roster was exhausted",
				zap.Int("attempted", len(attempts)),
				zap.Error(err),
			)
			return nil, &ExhaustedError{Attempts: attempts, Last: err}
		}

		log := inv.logger.With(
			zap.String("provider", p.Name()),
			zap.String("model", p.Model()),
			zap.Int("position", i+1),
			zap.Int("roster_size", len(inv.providers)),
		)
		log.Info("Trying provider")

		start := time.Now()
		plan, err := inv.attempt(ctx, p, req)
		elapsed := time.Since(start)

		if err != nil {
			log.Warn("Provider attempt failed", zap.Duration("duration", elapsed), zap.Error(err))
			attempts = append(attempts, Attempt{
				Provider: p.Name(),
				Model:    p.Model(),
				Err:      err,
				Duration: elapsed,
			})
			continue
		}

		attempts = append(attempts, Attempt{Provider: p.Name(), Model: p.Model(), Duration: elapsed})
		log.Info("Meal plan generated", zap.Duration("duration", elapsed))
		return &Result{
			Plan:     *plan,
			Provider: p.Name(),
			Model:    p.Model(),
			Attempts: attempts,
		}, nil
	}

	exhausted := &ExhaustedError{Attempts: attempts}
	if len(attempts) > 0 {
		exhausted.Last = attempts[len(attempts)-1].Err
	}
	inv.logger.Error("All providers failed", zap.Int("attempts", len(attempts)), zap.Error(exhausted.Last))
	return nil, exhausted
}

func (inv *Invoker) attempt(ctx context.Context, p outbound.LLMProvider, req outbound.LLMRequest) (*mealplan.MealPlan, error) {
	raw, err := p.Generate(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Model: p.Model(), Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &ProviderError{Provider: p.Name(), Model: p.Model(), Err: outbound.ErrEmptyResponse}
	}

	plan, err := inv.validator.Parse(raw)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Model: p.Model(), Err: fmt.Errorf("invalid response: %w", err)}
	}
	return plan, nil
}
