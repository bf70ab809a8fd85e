package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MealPlanRepository implements the meal plan repository interface using GORM
type MealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates a new meal plan repository
func NewMealPlanRepository(db *gorm.DB) outbound.MealPlanRepository {
	return &MealPlanRepository{db: db}
}

// GetByEmail finds the stored plan for an email
func (r *MealPlanRepository) GetByEmail(ctx context.Context, email string) (*mealplan.Record, error) {
	var model MealPlanModel

	result := r.db.WithContext(ctx).First(&model, "email = ?", mealplan.NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, mealplan.ErrNotFound
		}
		return nil, result.Error
	}

	return recordFromModel(&model), nil
}

// Upsert inserts or replaces the plan for email in a single statement and
// returns the stored row. Concurrent writers are last-write-wins.
func (r *MealPlanRepository) Upsert(ctx context.Context, email string, plan mealplan.MealPlan, provider string) (*mealplan.Record, error) {
	email = mealplan.NormalizeEmail(email)
	if email == "" {
		return nil, mealplan.ErrInvalidEmail
	}

	var stored MealPlanModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		model := MealPlanModel{
			Email:     email,
			MealPlan:  PlanJSON(plan),
			Version:   1,
			Provider:  provider,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"meal_plan":  PlanJSON(plan),
				"provider":   provider,
				"updated_at": now,
				"version":    gorm.Expr("user_meal_plans.version + 1"),
			}),
		}).Create(&model).Error
		if err != nil {
			return err
		}

		return tx.First(&stored, "email = ?", email).Error
	})
	if err != nil {
		return nil, err
	}

	return recordFromModel(&stored), nil
}
