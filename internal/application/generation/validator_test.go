package generation

import (
	"strings"
	"testing"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestValidator_Parse(t *testing.T) {
	v := NewValidator(MacroCheck{}, zaptest.NewLogger(t))
	plan := testutils.NewMealPlanBuilder().WithNotes("Stay consistent").Build()
	valid := testutils.NewMealPlanBuilder().JSON()

	t.Run("ValidJSON", func(t *testing.T) {
		raw := mustJSON(t, plan)

		got, err := v.Parse(raw)

		require.NoError(t, err)
		assert.Equal(t, plan, *got)
	})

	t.Run("SurroundingChatterIsIgnored", func(t *testing.T) {
		raw := "Here is your plan:\n```json\n" + valid + "\n```\nEnjoy!"

		_, err := v.Parse(raw)

		assert.NoError(t, err)
	})

	t.Run("ReasoningBlockIsStripped", func(t *testing.T) {
		raw := "<think>The user needs {roughly} 2000 kcal</think>\n" + valid

		_, err := v.Parse(raw)

		assert.NoError(t, err)
	})

	t.Run("UnknownFieldsAreAllowed", func(t *testing.T) {
		raw := strings.Replace(valid, `"total_calories"`, `"bmr":1700,"total_calories"`, 1)

		_, err := v.Parse(raw)

		assert.NoError(t, err)
	})

	t.Run("FractionalNumbersAreRounded", func(t *testing.T) {
		raw := `{"total_calories":1999.6,
			"breakfast":{"name":"B","foods":[{"name":"Oats","portion":"50g","emoji":"🥣"}],"calories":400.4,"protein":20.5,"carbs":60,"fats":10},
			"morning_snack":{"name":"S","foods":[],"calories":150,"protein":5,"carbs":20,"fats":5},
			"lunch":{"name":"L","foods":[],"calories":600,"protein":40,"carbs":60,"fats":20},
			"afternoon_snack":{"name":"S2","foods":[],"calories":150,"protein":5,"carbs":20,"fats":5},
			"dinner":{"name":"D","foods":[],"calories":700,"protein":45,"carbs":60,"fats":25},
			"hydration":"2.5L"}`

		got, err := v.Parse(raw)

		require.NoError(t, err)
		assert.Equal(t, 2000, got.TotalCalories)
		assert.Equal(t, 400, got.Breakfast.Calories)
		assert.Equal(t, 21, got.Breakfast.Protein)
		assert.Nil(t, got.Notes)
	})
}

func TestValidator_ParseRejects(t *testing.T) {
	v := NewValidator(MacroCheck{}, zaptest.NewLogger(t))
	valid := testutils.NewMealPlanBuilder().JSON()

	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", ""},
		{"NoObject", "I cannot help with that."},
		{"MalformedJSON", `{"total_calories": 2000, "breakfast": {`},
		{"MissingSlot", removeSlot(t, valid, mealplan.SlotDinner)},
		{"MissingTotal", removeField(t, valid, "total_calories")},
		{"NonNumericCalories", strings.Replace(valid, `"total_calories":`, `"total_calories":"lots","x":`, 1)},
		{"NegativeTotal", strings.Replace(valid, `"total_calories":`, `"total_calories":-5,"x":`, 1)},
		{"NullSlot", strings.Replace(valid, `"lunch":`, `"lunch":null,"x":`, 1)},
		{"HugeTotal", strings.Replace(valid, `"total_calories":`, `"total_calories":1e300,"x":`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Parse(tt.raw)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestValidator_MissingMacroNamesField(t *testing.T) {
	v := NewValidator(MacroCheck{}, zaptest.NewLogger(t))
	plan := testutils.NewMealPlanBuilder().Build()
	doc := toMap(t, mustJSON(t, plan))
	delete(doc["lunch"].(map[string]interface{}), "protein")

	_, err := v.Parse(mustJSON(t, doc))

	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "lunch.protein is required")
}

func TestValidator_OutOfRangeMacroIsRejected(t *testing.T) {
	v := NewValidator(MacroCheck{}, zaptest.NewLogger(t))
	doc := toMap(t, testutils.NewMealPlanBuilder().JSON())
	doc["dinner"].(map[string]interface{})["protein"] = 1e300

	got, err := v.Parse(mustJSON(t, doc))

	assert.Nil(t, got)
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "dinner.protein must be at most 10000")
}

func TestValidator_BlankFoodName(t *testing.T) {
	v := NewValidator(MacroCheck{}, zaptest.NewLogger(t))
	plan := testutils.NewMealPlanBuilder().Build()
	plan.Dinner.Foods[0].Name = " "

	_, err := v.Parse(mustJSON(t, plan))

	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.ErrorIs(t, err, mealplan.ErrEmptyFoodName)
}

func TestValidator_MacroCheckNeverRejects(t *testing.T) {
	v := NewValidator(MacroCheck{Enabled: true, Tolerance: 0.05}, zaptest.NewLogger(t))
	plan := testutils.NewMealPlanBuilder().Build()
	plan.Breakfast.Calories = plan.Breakfast.MacroCalories() * 3

	got, err := v.Parse(mustJSON(t, plan))

	require.NoError(t, err)
	assert.Equal(t, plan.Breakfast.Calories, got.Breakfast.Calories)
}
