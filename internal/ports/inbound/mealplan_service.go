// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
)

// MealPlanService defines the meal plan use cases used by the HTTP handlers
type MealPlanService interface {
	// Generate builds a fresh plan from the profile and stores it for email
	Generate(ctx context.Context, email string, profile mealplan.UserProfile) (*mealplan.Record, error)
	// Update edits a previous plan according to a free-text instruction
	Update(ctx context.Context, email string, cmd UpdateMealPlanCommand) (*mealplan.Record, error)
	// Get returns the stored plan or mealplan.ErrNotFound
	Get(ctx context.Context, email string) (*mealplan.Record, error)
	// Put stores a caller-supplied plan without generation
	Put(ctx context.Context, email string, plan mealplan.MealPlan) (*mealplan.Record, error)
}

// UpdateMealPlanCommand contains the data for an update request.
// Profile is optional; when nil the stored account profile is used.
type UpdateMealPlanCommand struct {
	Instruction string
	Previous    mealplan.MealPlan
	Profile     *mealplan.UserProfile
}
