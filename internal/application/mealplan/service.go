// Package mealplan provides the application layer for meal plan generation
// This implements the use cases defined in the inbound ports
package mealplan

import (
	"context"
	stderrors "errors"

	"github.com/nutriplan/mealplan/internal/application/generation"
	"github.com/nutriplan/mealplan/internal/application/prompt"
	"github.com/nutriplan/mealplan/internal/domain/account"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/inbound"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/nutriplan/mealplan/pkg/errors"
	"go.uber.org/zap"
)

// Service implements the meal plan use cases
type Service struct {
	plans     outbound.MealPlanRepository
	accounts  outbound.AccountRepository
	builder   *prompt.Builder
	invoker   *generation.Invoker
	validator *generation.Validator
	logger    *zap.Logger
}

// NewService creates a new meal plan service
func NewService(
	plans outbound.MealPlanRepository,
	accounts outbound.AccountRepository,
	builder *prompt.Builder,
	invoker *generation.Invoker,
	validator *generation.Validator,
	logger *zap.Logger,
) inbound.MealPlanService {
	return &Service{
		plans:     plans,
		accounts:  accounts,
		builder:   builder,
		invoker:   invoker,
		validator: validator,
		logger:    logger.Named("mealplan-service"),
	}
}

// Generate creates a fresh plan for email and stores it
func (s *Service) Generate(ctx context.Context, email string, profile mealplan.UserProfile) (*mealplan.Record, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	profile = profile.Normalized()

	s.logger.Info("Generating meal plan",
		zap.String("email", email),
		zap.String("goal", string(profile.Goal())),
	)

	result, err := s.invoker.Invoke(ctx, s.builder.Generation(profile))
	if err != nil {
		return nil, generationError(ctx, err)
	}

	record, err := s.plans.Upsert(ctx, email, result.Plan, result.Provider)
	if err != nil {
		return nil, errors.NewDatabaseError("store meal plan", err)
	}

	s.rememberProfile(ctx, email, profile)
	return record, nil
}

// Update edits the caller's previous plan and stores the result
func (s *Service) Update(ctx context.Context, email string, cmd inbound.UpdateMealPlanCommand) (*mealplan.Record, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePlan(cmd.Previous); err != nil {
		return nil, errors.NewSchemaMismatchError(err)
	}

	profile, err := s.resolveProfile(ctx, email, cmd.Profile)
	if err != nil {
		return nil, err
	}

	req, err := s.builder.Update(profile, cmd.Previous, cmd.Instruction)
	if err != nil {
		if stderrors.Is(err, mealplan.ErrEmptyInstruction) {
			return nil, errors.NewValidationError(err.Error())
		}
		return nil, errors.Wrap(err, "failed to build update prompt")
	}

	s.logger.Info("Updating meal plan", zap.String("email", email))

	result, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, generationError(ctx, err)
	}

	record, err := s.plans.Upsert(ctx, email, result.Plan, result.Provider)
	if err != nil {
		return nil, errors.NewDatabaseError("store meal plan", err)
	}

	if cmd.Profile != nil {
		s.rememberProfile(ctx, email, profile)
	}
	return record, nil
}

// Get returns the stored plan for email
func (s *Service) Get(ctx context.Context, email string) (*mealplan.Record, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	record, err := s.plans.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, mealplan.ErrNotFound) {
			return nil, errors.NewMealPlanNotFoundError(email)
		}
		return nil, errors.NewDatabaseError("load meal plan", err)
	}
	return record, nil
}

// Put stores a caller-supplied plan without generation
func (s *Service) Put(ctx context.Context, email string, plan mealplan.MealPlan) (*mealplan.Record, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePlan(plan); err != nil {
		return nil, errors.NewSchemaMismatchError(err)
	}

	record, err := s.plans.Upsert(ctx, email, plan, "")
	if err != nil {
		return nil, errors.NewDatabaseError("store meal plan", err)
	}
	return record, nil
}

// rememberProfile stores profile for later updates. Failure does not fail
// the request since the plan is already stored.
func (s *Service) rememberProfile(ctx context.Context, email string, profile mealplan.UserProfile) {
	if err := s.accounts.SaveProfile(ctx, email, profile); err != nil {
		s.logger.Warn("Failed to remember profile", zap.String("email", email), zap.Error(err))
	}
}

func (s *Service) resolveProfile(ctx context.Context, email string, supplied *mealplan.UserProfile) (mealplan.UserProfile, error) {
	if supplied != nil {
		if err := supplied.Validate(); err != nil {
			return mealplan.UserProfile{}, errors.NewValidationError(err.Error())
		}
		return supplied.Normalized(), nil
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, account.ErrNotFound) {
			return mealplan.UserProfile{}, errors.NewAccountNotFoundError(email)
		}
		return mealplan.UserProfile{}, errors.NewDatabaseError("load account", err)
	}
	return acc.Profile, nil
}

func normalizeEmail(email string) (string, error) {
	email = mealplan.NormalizeEmail(email)
	if email == "" {
		return "", errors.NewValidationError(mealplan.ErrInvalidEmail.Error())
	}
	return email, nil
}

// generationError maps an invoker failure. Exhaustion caused by the request
// deadline is a 504; a roster that failed on its own is a 502.
func generationError(ctx context.Context, err error) error {
	var exhausted *generation.ExhaustedError
	if stderrors.As(err, &exhausted) {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.NewGenerationTimeoutError(exhausted.LastProvider(), len(exhausted.Attempts), exhausted)
		}
		detail := ""
		if exhausted.Last != nil {
			detail = exhausted.Last.Error()
		}
		return errors.NewGenerationFailedError(exhausted.LastProvider(), len(exhausted.Attempts), detail, exhausted)
	}
	return errors.Wrap(err, "meal plan generation failed")
}
