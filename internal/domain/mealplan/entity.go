// Package mealplan defines the meal plan domain: the user profile a plan is
// generated from, the five-slot daily plan itself and the persisted record.
package mealplan

import (
	"errors"
	"strings"
	"time"
)

// WeightGoal is the direction the plan steers body weight
type WeightGoal string

const (
	GoalWeightLoss  WeightGoal = "weight loss"
	GoalWeightGain  WeightGoal = "weight gain"
	GoalMaintenance WeightGoal = "maintenance"
)

// GoalDeadBand is the weight difference (kg) below which no calorie
// adjustment is requested.
const GoalDeadBand = 1.0

// GoalFor derives the weight goal from target minus current weight.
// Differences of exactly ±GoalDeadBand are maintenance.
func GoalFor(currentWeight, targetWeight float64) WeightGoal {
	diff := targetWeight - currentWeight
	switch {
	case diff < -GoalDeadBand:
		return GoalWeightLoss
	case diff > GoalDeadBand:
		return GoalWeightGain
	default:
		return GoalMaintenance
	}
}

// UserProfile is the biometric and dietary input to generation
type UserProfile struct {
	Age                float64  `json:"age"`
	CurrentWeight      float64  `json:"weight"`
	TargetWeight       float64  `json:"targetWeight"`
	Height             float64  `json:"height"`
	Gender             string   `json:"gender"`
	ActivityLevel      string   `json:"daily_physical_activity"`
	DietaryPreferences []string `json:"dietary_preferences"`
	Allergies          []string `json:"allergies"`
}

// Goal returns the weight goal implied by the profile
func (p UserProfile) Goal() WeightGoal {
	return GoalFor(p.CurrentWeight, p.TargetWeight)
}

// Validate checks the numeric and descriptive fields of the profile
func (p UserProfile) Validate() error {
	var errs []error
	if p.Age <= 0 {
		errs = append(errs, ErrInvalidAge)
	}
	if p.CurrentWeight <= 0 || p.TargetWeight <= 0 {
		errs = append(errs, ErrInvalidWeight)
	}
	if p.Height <= 0 {
		errs = append(errs, ErrInvalidHeight)
	}
	if strings.TrimSpace(p.Gender) == "" {
		errs = append(errs, ErrMissingGender)
	}
	if strings.TrimSpace(p.ActivityLevel) == "" {
		errs = append(errs, ErrMissingActivityLevel)
	}
	return errors.Join(errs...)
}

// Normalized returns a copy with trimmed strings, blank list entries removed
// and nil lists replaced by empty ones.
func (p UserProfile) Normalized() UserProfile {
	p.Gender = strings.TrimSpace(p.Gender)
	p.ActivityLevel = strings.TrimSpace(p.ActivityLevel)
	p.DietaryPreferences = compact(p.DietaryPreferences)
	p.Allergies = compact(p.Allergies)
	return p
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FoodItem is a single food within a meal
type FoodItem struct {
	Name    string `json:"name"`
	Portion string `json:"portion"`
	Emoji   string `json:"emoji"`
}

// Meal is one of the five daily slots
type Meal struct {
	Name     string     `json:"name"`
	Foods    []FoodItem `json:"foods"`
	Calories int        `json:"calories"`
	Protein  int        `json:"protein"`
	Carbs    int        `json:"carbs"`
	Fats     int        `json:"fats"`
}

// MacroCalories returns the energy implied by the macros (4/4/9 kcal per gram)
func (m Meal) MacroCalories() int {
	return 4*m.Protein + 4*m.Carbs + 9*m.Fats
}

// Slot names as they appear on the wire
const (
	SlotBreakfast      = "breakfast"
	SlotMorningSnack   = "morning_snack"
	SlotLunch          = "lunch"
	SlotAfternoonSnack = "afternoon_snack"
	SlotDinner         = "dinner"
)

// SlotNames lists the five required slots in serving order
var SlotNames = []string{SlotBreakfast, SlotMorningSnack, SlotLunch, SlotAfternoonSnack, SlotDinner}

// MealPlan is a structured daily plan with exactly five meal slots
type MealPlan struct {
	TotalCalories  int     `json:"total_calories"`
	Breakfast      Meal    `json:"breakfast"`
	MorningSnack   Meal    `json:"morning_snack"`
	Lunch          Meal    `json:"lunch"`
	AfternoonSnack Meal    `json:"afternoon_snack"`
	Dinner         Meal    `json:"dinner"`
	Hydration      string  `json:"hydration"`
	Notes          *string `json:"notes,omitempty"`
}

// SlotMeal pairs a slot name with its meal
type SlotMeal struct {
	Slot string
	Meal Meal
}

// Slots returns the five meals in serving order
func (p MealPlan) Slots() []SlotMeal {
	return []SlotMeal{
		{Slot: SlotBreakfast, Meal: p.Breakfast},
		{Slot: SlotMorningSnack, Meal: p.MorningSnack},
		{Slot: SlotLunch, Meal: p.Lunch},
		{Slot: SlotAfternoonSnack, Meal: p.AfternoonSnack},
		{Slot: SlotDinner, Meal: p.Dinner},
	}
}

// Validate checks the invariants a stored plan must hold
func (p MealPlan) Validate() error {
	if p.TotalCalories < 0 {
		return ErrNegativeNutrient
	}
	for _, s := range p.Slots() {
		m := s.Meal
		if m.Calories < 0 || m.Protein < 0 || m.Carbs < 0 || m.Fats < 0 {
			return &SlotError{Slot: s.Slot, Err: ErrNegativeNutrient}
		}
		for _, f := range m.Foods {
			if strings.TrimSpace(f.Name) == "" {
				return &SlotError{Slot: s.Slot, Err: ErrEmptyFoodName}
			}
		}
	}
	return nil
}

// Record is the single current plan stored for an email
type Record struct {
	Email     string
	Plan      MealPlan
	Version   int64
	Provider  string
	UpdatedAt time.Time
}

// NormalizeEmail returns the canonical form of an email used as a key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
