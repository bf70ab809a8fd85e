package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"go.uber.org/zap"
)

// Wire shapes use pointers so absent fields can be told apart from zeros.
// Upper bounds keep every number well inside int range before rounding.
type wireFood struct {
	Name    string `json:"name" validate:"required"`
	Portion string `json:"portion"`
	Emoji   string `json:"emoji"`
}

type wireMeal struct {
	Name     string     `json:"name"`
	Foods    []wireFood `json:"foods" validate:"required,dive"`
	Calories *float64   `json:"calories" validate:"required,min=0,max=100000"`
	Protein  *float64   `json:"protein" validate:"required,min=0,max=10000"`
	Carbs    *float64   `json:"carbs" validate:"required,min=0,max=10000"`
	Fats     *float64   `json:"fats" validate:"required,min=0,max=10000"`
}

type wirePlan struct {
	TotalCalories  *float64  `json:"total_calories" validate:"required,min=0,max=100000"`
	Breakfast      *wireMeal `json:"breakfast" validate:"required"`
	MorningSnack   *wireMeal `json:"morning_snack" validate:"required"`
	Lunch          *wireMeal `json:"lunch" validate:"required"`
	AfternoonSnack *wireMeal `json:"afternoon_snack" validate:"required"`
	Dinner         *wireMeal `json:"dinner" validate:"required"`
	Hydration      string    `json:"hydration"`
	Notes          *string   `json:"notes"`
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// MacroCheck configures the optional calorie/macro consistency warning
type MacroCheck struct {
	Enabled bool
	// Tolerance is the accepted relative difference, e.g. 0.15 for 15%
	Tolerance float64
}

// Validator parses raw model text into a MealPlan
type Validator struct {
	validate   *validator.Validate
	macroCheck MacroCheck
	logger     *zap.Logger
}

// NewValidator creates a response validator
func NewValidator(macroCheck MacroCheck, logger *zap.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if macroCheck.Tolerance <= 0 {
		macroCheck.Tolerance = 0.15
	}
	return &Validator{
		validate:   v,
		macroCheck: macroCheck,
		logger:     logger.Named("validator"),
	}
}

// Parse extracts, validates and coerces a plan from raw model output.
// Every failure wraps ErrSchemaMismatch.
func (v *Validator) Parse(raw string) (*mealplan.MealPlan, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var wire wirePlan
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	if err := v.validate.Struct(wire); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, describe(err))
	}

	plan := wire.toDomain()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	if v.macroCheck.Enabled {
		v.checkMacros(plan)
	}

	return &plan, nil
}

// ValidatePlan checks a plan supplied by a caller rather than a model
func (v *Validator) ValidatePlan(plan mealplan.MealPlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

func (v *Validator) checkMacros(plan mealplan.MealPlan) {
	for _, s := range plan.Slots() {
		declared := float64(s.Meal.Calories)
		implied := float64(s.Meal.MacroCalories())
		if declared == 0 && implied == 0 {
			continue
		}
		if math.Abs(declared-implied) > v.macroCheck.Tolerance*math.Max(declared, implied) {
			v.logger.Warn("Meal calories inconsistent with macros",
				zap.String("slot", s.Slot),
				zap.Int("calories", s.Meal.Calories),
				zap.Int("macro_calories", s.Meal.MacroCalories()),
			)
		}
	}
}

func extractJSONObject(raw string) (string, error) {
	text := thinkBlock.ReplaceAllString(raw, "")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object found in response", ErrSchemaMismatch)
	}
	return text[start : end+1], nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "wirePlan.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must not be negative")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (w wirePlan) toDomain() mealplan.MealPlan {
	return mealplan.MealPlan{
		TotalCalories:  round(w.TotalCalories),
		Breakfast:      w.Breakfast.toDomain(),
		MorningSnack:   w.MorningSnack.toDomain(),
		Lunch:          w.Lunch.toDomain(),
		AfternoonSnack: w.AfternoonSnack.toDomain(),
		Dinner:         w.Dinner.toDomain(),
		Hydration:      w.Hydration,
		Notes:          w.Notes,
	}
}

func (w *wireMeal) toDomain() mealplan.Meal {
	foods := make([]mealplan.FoodItem, 0, len(w.Foods))
	for _, f := range w.Foods {
		foods = append(foods, mealplan.FoodItem{Name: f.Name, Portion: f.Portion, Emoji: f.Emoji})
	}
	return mealplan.Meal{
		Name:     w.Name,
		Foods:    foods,
		Calories: round(w.Calories),
		Protein:  round(w.Protein),
		Carbs:    round(w.Carbs),
		Fats:     round(w.Fats),
	}
}

func round(v *float64) int {
	if v == nil {
		return 0
	}
	return int(math.Round(*v))
}
