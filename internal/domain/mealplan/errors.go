package mealplan

import (
	"errors"
	"fmt"
)

var (
	// Profile validation errors
	ErrInvalidAge           = errors.New("age must be greater than 0")
	ErrInvalidWeight        = errors.New("current and target weight must be greater than 0")
	ErrInvalidHeight        = errors.New("height must be greater than 0")
	ErrMissingGender        = errors.New("gender is required")
	ErrMissingActivityLevel = errors.New("daily physical activity level is required")

	// Plan errors
	ErrNegativeNutrient = errors.New("calorie and macro values must not be negative")
	ErrEmptyFoodName    = errors.New("food item name must not be empty")
	ErrEmptyInstruction = errors.New("update instruction must not be empty")
	ErrInvalidEmail     = errors.New("email must not be empty")

	ErrNotFound = errors.New("meal plan not found")
)

// SlotError ties a plan error to the meal slot it was found in
type SlotError struct {
	Slot string
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s: %v", e.Slot, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}
