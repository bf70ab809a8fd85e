package gorm

import (
	"context"
	"errors"

	"github.com/nutriplan/mealplan/internal/domain/account"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository implements the account repository interface using GORM
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) outbound.AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail finds an account by email
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	var model AccountModel

	result := r.db.WithContext(ctx).First(&model, "email = ?", mealplan.NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, result.Error
	}

	return accountFromModel(&model), nil
}

// SaveProfile creates the account on first use and replaces its profile after
func (r *AccountRepository) SaveProfile(ctx context.Context, email string, profile mealplan.UserProfile) error {
	acct, err := account.New(email, profile)
	if err != nil {
		return err
	}

	model := AccountModel{Email: acct.Email, CreatedAt: acct.CreatedAt, UpdatedAt: acct.UpdatedAt}
	applyProfile(&model, acct.Profile)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"age", "current_weight", "target_weight", "height", "gender",
			"activity_level", "dietary_preferences", "allergies", "updated_at",
		}),
	}).Create(&model).Error
}
