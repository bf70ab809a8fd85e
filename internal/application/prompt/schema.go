package prompt

import (
	"fmt"

	"github.com/nutriplan/mealplan/internal/ports/outbound"
)

const mealSchema = `{
      "type": "object",
      "description": "%s",
      "properties": {
        "name": {"type": "string", "description": "Name of the meal"},
        "foods": {
          "type": "array",
          "description": "List of foods in this meal",
          "items": {
            "type": "object",
            "properties": {
              "name": {"type": "string", "description": "Name of the food item"},
              "portion": {"type": "string", "description": "Portion size of the food item"},
              "emoji": {"type": "string", "description": "Emoji representing the food item"}
            },
            "required": ["name", "portion", "emoji"]
          }
        },
        "calories": {"type": "integer", "description": "Total calories for this meal"},
        "protein": {"type": "integer", "description": "Protein content in grams"},
        "carbs": {"type": "integer", "description": "Carbohydrate content in grams"},
        "fats": {"type": "integer", "description": "Fat content in grams"}
      },
      "required": ["name", "foods", "calories", "protein", "carbs", "fats"]
    }`

// MealPlanSchema returns the JSON Schema every provider response must satisfy
func MealPlanSchema() outbound.OutputSchema {
	doc := fmt.Sprintf(`{
  "title": "DailyPlan",
  "type": "object",
  "properties": {
    "total_calories": {"type": "integer", "description": "Total daily calorie intake"},
    "breakfast": %s,
    "morning_snack": %s,
    "lunch": %s,
    "afternoon_snack": %s,
    "dinner": %s,
    "hydration": {"type": "string", "description": "Daily hydration recommendation"},
    "notes": {"type": "string", "description": "Additional nutritional notes"}
  },
  "required": ["total_calories", "breakfast", "morning_snack", "lunch", "afternoon_snack", "dinner", "hydration"]
}`,
		fmt.Sprintf(mealSchema, "Breakfast meal details"),
		fmt.Sprintf(mealSchema, "Morning snack details"),
		fmt.Sprintf(mealSchema, "Lunch meal details"),
		fmt.Sprintf(mealSchema, "Afternoon snack details"),
		fmt.Sprintf(mealSchema, "Dinner meal details"),
	)

	return outbound.OutputSchema{
		Name:        "DailyPlan",
		Description: "A daily meal plan with five meal slots, hydration advice and notes",
		JSON:        doc,
	}
}

func formatInstructions(schema outbound.OutputSchema) string {
	return "The output must be a single JSON object that conforms to the JSON schema below. " +
		"Return only the JSON object, without markdown fences or commentary.\n\n" +
		"```\n" + schema.JSON + "\n```"
}
