// Package prompt renders the natural-language prompts sent to meal plan providers.
package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
)

// NoneSpecified marks an absent preference or allergy list
const NoneSpecified = "none specified"

// Config holds the injected wording of the prompts
type Config struct {
	Persona      string
	WeightUnit   string
	HeightUnit   string
	ProteinRange string
}

// DefaultConfig returns the stock nutritionist persona in metric units
func DefaultConfig() Config {
	return Config{
		Persona:      "You are a professional nutritionist AI assistant.",
		WeightUnit:   "kg",
		HeightUnit:   "cm",
		ProteinRange: "1.6-2.2g",
	}
}

// Builder renders generation and update prompts. It holds no mutable state.
type Builder struct {
	cfg    Config
	schema outbound.OutputSchema
}

// NewBuilder creates a prompt builder
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.Persona == "" {
		cfg.Persona = def.Persona
	}
	if cfg.WeightUnit == "" {
		cfg.WeightUnit = def.WeightUnit
	}
	if cfg.HeightUnit == "" {
		cfg.HeightUnit = def.HeightUnit
	}
	if cfg.ProteinRange == "" {
		cfg.ProteinRange = def.ProteinRange
	}
	return &Builder{cfg: cfg, schema: MealPlanSchema()}
}

// Schema returns the output schema attached to every prompt
func (b *Builder) Schema() outbound.OutputSchema {
	return b.schema
}

// Generation renders the prompt for a fresh daily plan
func (b *Builder) Generation(profile mealplan.UserProfile) outbound.LLMRequest {
	profile = profile.Normalized()

	var user strings.Builder
	b.writeUserDetails(&user, profile)
	b.writeRequirements(&user, profile.Goal())

	return outbound.LLMRequest{
		System: b.system("Based on the user details below, generate a daily meal plan that is balanced, nutritious, and tailored to their specific needs."),
		User:   user.String(),
		Schema: b.schema,
	}
}

// Update renders the prompt that edits previous according to instruction
func (b *Builder) Update(profile mealplan.UserProfile, previous mealplan.MealPlan, instruction string) (outbound.LLMRequest, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return outbound.LLMRequest{}, mealplan.ErrEmptyInstruction
	}
	profile = profile.Normalized()

	previousJSON, err := json.MarshalIndent(previous, "", "  ")
	if err != nil {
		return outbound.LLMRequest{}, fmt.Errorf("failed to serialize previous meal plan: %w", err)
	}

	var user strings.Builder
	b.writeUserDetails(&user, profile)

	user.WriteString("\n### Current Meal Plan\n")
	user.WriteString("```json\n")
	user.Write(previousJSON)
	user.WriteString("\n```\n")

	user.WriteString("\n### Requested Change\n")
	user.WriteString(instruction)
	user.WriteString("\n")

	user.WriteString("\n### Update Rules\n")
	user.WriteString("(a) Keep every field the requested change does not address exactly as it is in the current meal plan.\n")
	user.WriteString("(b) Keep exactly the five meal slots breakfast, morning_snack, lunch, afternoon_snack and dinner. Do not add, remove or rename slots.\n")
	user.WriteString("(c) The dietary preferences and food allergies above are non-negotiable, even when the requested change asks otherwise.\n")
	user.WriteString("(d) If the requested change cannot be applied, return the current meal plan unchanged.\n")
	user.WriteString("- Recalculate total_calories and the changed meals' calories and macronutrients.\n")

	return outbound.LLMRequest{
		System: b.system("Update the user's existing daily meal plan according to their request while respecting their details."),
		User:   user.String(),
		Schema: b.schema,
	}, nil
}

func (b *Builder) system(task string) string {
	var s strings.Builder
	s.WriteString(b.cfg.Persona)
	s.WriteString(" ")
	s.WriteString(task)
	s.WriteString("\n\n")
	s.WriteString(formatInstructions(b.schema))
	s.WriteString("\n\nRemember to:\n")
	s.WriteString("1. Calculate BMR and TDEE based on the provided information\n")
	s.WriteString("2. Adjust calories appropriately for the user's weight goals\n")
	s.WriteString("3. Balance macronutrients properly for the user's activity level\n")
	s.WriteString("4. Provide realistic portion sizes in grams\n")
	s.WriteString("5. Make meals practical and easy to prepare\n")
	return s.String()
}

func (b *Builder) writeUserDetails(w *strings.Builder, p mealplan.UserProfile) {
	w.WriteString("### User Details\n")
	fmt.Fprintf(w, "- Age: %s years\n", number(p.Age))
	fmt.Fprintf(w, "- Current Weight: %s %s\n", number(p.CurrentWeight), b.cfg.WeightUnit)
	fmt.Fprintf(w, "- Target Weight: %s %s (Goal: %s)\n", number(p.TargetWeight), b.cfg.WeightUnit, p.Goal())
	fmt.Fprintf(w, "- Height: %s %s\n", number(p.Height), b.cfg.HeightUnit)
	fmt.Fprintf(w, "- Gender: %s\n", p.Gender)
	fmt.Fprintf(w, "- Daily Physical Activity Level: %s\n", p.ActivityLevel)
	fmt.Fprintf(w, "- Dietary Preferences: %s\n", list(p.DietaryPreferences))
	fmt.Fprintf(w, "- Food Allergies: %s\n", list(p.Allergies))
}

func (b *Builder) writeRequirements(w *strings.Builder, goal mealplan.WeightGoal) {
	w.WriteString("\n### Requirements\n")
	w.WriteString("**important**\n")
	w.WriteString("- Generate a complete daily meal plan with 3 main meals and 2 snacks strictly considering the User Details.\n")
	w.WriteString("- Strictly follow the user's dietary preferences (e.g., vegetarian, vegan, keto). If none are specified, no restriction applies.\n")
	w.WriteString("- Exclude any foods the user is allergic to. If none are specified, no food is excluded for allergies.\n")
	w.WriteString("\n")
	w.WriteString("- For each meal and snack, include specific foods with portion sizes in grams.\n")
	w.WriteString("- Include calorie and macronutrient breakdown for each meal.\n")
	fmt.Fprintf(w, "- Calculate appropriate daily caloric intake based on the user's stats and goal (%s): %s.\n", goal, CalorieInstruction(goal))
	fmt.Fprintf(w, "- Ensure adequate protein (%s per %s of body weight for active individuals).\n", b.cfg.ProteinRange, b.cfg.WeightUnit)
	w.WriteString("- Focus on whole, unprocessed foods with appropriate variety.\n")
	w.WriteString("- Include daily hydration recommendations.\n")
	w.WriteString("- Include a short personalized user-specific note at the end of the meal plan.\n")
}

// CalorieInstruction returns the goal-specific calorie adjustment
func CalorieInstruction(goal mealplan.WeightGoal) string {
	switch goal {
	case mealplan.GoalWeightLoss:
		return "300-500 calorie deficit"
	case mealplan.GoalWeightGain:
		return "300-500 calorie surplus"
	default:
		return "balanced calories"
	}
}

func list(values []string) string {
	if len(values) == 0 {
		return NoneSpecified
	}
	return strings.Join(values, ", ")
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
