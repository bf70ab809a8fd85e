// Package gorm provides GORM model definitions and repositories for meal plans
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nutriplan/mealplan/internal/domain/account"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MealPlanModel is the single current plan for an email
type MealPlanModel struct {
	Email     string   `gorm:"type:varchar(255);primaryKey"`
	MealPlan  PlanJSON `gorm:"type:json;not null"`
	Version   int64    `gorm:"not null;default:1"`
	Provider  string   `gorm:"type:varchar(100)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name stable across renames
func (MealPlanModel) TableName() string { return "user_meal_plans" }

// AccountModel stores the last submitted profile per email
type AccountModel struct {
	ID                 uuid.UUID   `gorm:"type:char(36);primaryKey"`
	Email              string      `gorm:"type:varchar(255);uniqueIndex;not null"`
	Age                float64     `gorm:"not null"`
	CurrentWeight      float64     `gorm:"not null"`
	TargetWeight       float64     `gorm:"not null"`
	Height             float64     `gorm:"not null"`
	Gender             string      `gorm:"type:varchar(50)"`
	ActivityLevel      string      `gorm:"type:varchar(100)"`
	DietaryPreferences StringSlice `gorm:"type:json"`
	Allergies          StringSlice `gorm:"type:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName keeps the table name stable across renames
func (AccountModel) TableName() string { return "accounts" }

// BeforeCreate hook for AccountModel
func (a *AccountModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AllModels lists every model for auto-migration
func AllModels() []interface{} {
	return []interface{}{&MealPlanModel{}, &AccountModel{}}
}

// PlanJSON stores a meal plan as a JSON document
type PlanJSON mealplan.MealPlan

// Scan implements the sql.Scanner interface
func (p *PlanJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		return fmt.Errorf("meal plan column is null")
	default:
		return fmt.Errorf("cannot scan %T into PlanJSON", value)
	}
}

// Value implements the driver.Valuer interface
func (p PlanJSON) Value() (driver.Value, error) {
	b, err := json.Marshal(mealplan.MealPlan(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringSlice custom type for handling string slices in JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func recordFromModel(m *MealPlanModel) *mealplan.Record {
	return &mealplan.Record{
		Email:     m.Email,
		Plan:      mealplan.MealPlan(m.MealPlan),
		Version:   m.Version,
		Provider:  m.Provider,
		UpdatedAt: m.UpdatedAt,
	}
}

func accountFromModel(m *AccountModel) *account.Account {
	return &account.Account{
		Email: m.Email,
		Profile: mealplan.UserProfile{
			Age:                m.Age,
			CurrentWeight:      m.CurrentWeight,
			TargetWeight:       m.TargetWeight,
			Height:             m.Height,
			Gender:             m.Gender,
			ActivityLevel:      m.ActivityLevel,
			DietaryPreferences: []string(m.DietaryPreferences),
			Allergies:          []string(m.Allergies),
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func applyProfile(m *AccountModel, p mealplan.UserProfile) {
	m.Age = p.Age
	m.CurrentWeight = p.CurrentWeight
	m.TargetWeight = p.TargetWeight
	m.Height = p.Height
	m.Gender = p.Gender
	m.ActivityLevel = p.ActivityLevel
	m.DietaryPreferences = StringSlice(p.DietaryPreferences)
	m.Allergies = StringSlice(p.Allergies)
}

// ParseLogLevel maps a configured level name to a GORM log level
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
