// Package testutils provides test data factories for profiles and meal plans
package testutils

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
)

// ProfileFactory creates user profiles from a seeded faker
type ProfileFactory struct {
	faker *gofakeit.Faker
}

// NewProfileFactory creates a new profile factory with seeded faker
func NewProfileFactory(seed int64) *ProfileFactory {
	return &ProfileFactory{faker: gofakeit.New(seed)}
}

// Email returns a random lower-case email
func (f *ProfileFactory) Email() string {
	return strings.ToLower(f.faker.Email())
}

// Profile returns a valid random profile
func (f *ProfileFactory) Profile() mealplan.UserProfile {
	weight := float64(f.faker.Number(50, 120))
	return mealplan.UserProfile{
		Age:                float64(f.faker.Number(18, 80)),
		CurrentWeight:      weight,
		TargetWeight:       weight + float64(f.faker.Number(-15, 15)),
		Height:             float64(f.faker.Number(150, 200)),
		Gender:             f.faker.RandomString([]string{"male", "female"}),
		ActivityLevel:      f.faker.RandomString([]string{"sedentary", "light", "moderate", "active"}),
		DietaryPreferences: []string{},
		Allergies:          []string{},
	}
}

// ScenarioProfile returns the reference weight-loss profile used across tests
func ScenarioProfile() mealplan.UserProfile {
	return mealplan.UserProfile{
		Age:                30,
		CurrentWeight:      80,
		TargetWeight:       70,
		Height:             175,
		Gender:             "male",
		ActivityLevel:      "moderate",
		DietaryPreferences: []string{},
		Allergies:          []string{},
	}
}

// MealPlanBuilder provides a fluent interface for building test meal plans
type MealPlanBuilder struct {
	faker *gofakeit.Faker
	plan  mealplan.MealPlan
}

// NewMealPlanBuilder creates a builder holding a complete, consistent plan
func NewMealPlanBuilder() *MealPlanBuilder {
	faker := gofakeit.New(time.Now().UnixNano())
	b := &MealPlanBuilder{faker: faker}
	b.plan = mealplan.MealPlan{
		Breakfast:      b.meal("Breakfast", 20, 45, 12),
		MorningSnack:   b.meal("Morning Snack", 8, 20, 5),
		Lunch:          b.meal("Lunch", 35, 50, 15),
		AfternoonSnack: b.meal("Afternoon Snack", 10, 15, 8),
		Dinner:         b.meal("Dinner", 40, 40, 18),
		Hydration:      "Drink at least 2.5 liters of water throughout the day",
	}
	b.recalculateTotal()
	return b
}

func (b *MealPlanBuilder) meal(name string, protein, carbs, fats int) mealplan.Meal {
	m := mealplan.Meal{
		Name: name,
		Foods: []mealplan.FoodItem{
			{Name: b.faker.Fruit(), Portion: fmt.Sprintf("%dg", b.faker.Number(50, 250)), Emoji: "🍎"},
			{Name: b.faker.Vegetable(), Portion: fmt.Sprintf("%dg", b.faker.Number(50, 250)), Emoji: "🥦"},
		},
		Protein: protein,
		Carbs:   carbs,
		Fats:    fats,
	}
	m.Calories = m.MacroCalories()
	return m
}

func (b *MealPlanBuilder) recalculateTotal() {
	total := 0
	for _, s := range b.plan.Slots() {
		total += s.Meal.Calories
	}
	b.plan.TotalCalories = total
}

// WithLunch replaces the lunch slot
func (b *MealPlanBuilder) WithLunch(m mealplan.Meal) *MealPlanBuilder {
	b.plan.Lunch = m
	b.recalculateTotal()
	return b
}

// WithNotes sets the personalised note
func (b *MealPlanBuilder) WithNotes(notes string) *MealPlanBuilder {
	b.plan.Notes = &notes
	return b
}

// WithTotalCalories overrides the daily total
func (b *MealPlanBuilder) WithTotalCalories(total int) *MealPlanBuilder {
	b.plan.TotalCalories = total
	return b
}

// Build returns the plan
func (b *MealPlanBuilder) Build() mealplan.MealPlan {
	return b.plan
}

// JSON returns the plan serialised the way a provider would return it
func (b *MealPlanBuilder) JSON() string {
	data, err := json.Marshal(b.plan)
	if err != nil {
		panic(err)
	}
	return string(data)
}
