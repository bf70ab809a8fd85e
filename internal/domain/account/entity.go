// Package account holds the stored profile of a meal plan user.
package account

import (
	"errors"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
)

var ErrNotFound = errors.New("account not found")

// Account is keyed by email and remembers the last submitted profile.
// Credentials live with the user-management service, not here.
type Account struct {
	Email     string
	Profile   mealplan.UserProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an account for email with the given profile
func New(email string, profile mealplan.UserProfile) (*Account, error) {
	email = mealplan.NormalizeEmail(email)
	if email == "" {
		return nil, mealplan.ErrInvalidEmail
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Account{
		Email:     email,
		Profile:   profile.Normalized(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
