package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nutriplan/mealplan/internal/application/generation"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/inbound"
	"github.com/nutriplan/mealplan/pkg/errors"
	"go.uber.org/zap"
)

// MealPlanHandlers serves the meal plan endpoints
type MealPlanHandlers struct {
	service  inbound.MealPlanService
	plans    *generation.Validator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewMealPlanHandlers creates the meal plan handlers. plans checks the
// structure of caller-supplied meal plans.
func NewMealPlanHandlers(service inbound.MealPlanService, plans *generation.Validator, logger *zap.Logger) *MealPlanHandlers {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &MealPlanHandlers{
		service:  service,
		plans:    plans,
		validate: v,
		logger:   logger.Named("mealplan-api"),
	}
}

// ProfileRequest is the user profile body. Numbers are pointers so a missing
// field is reported rather than read as zero.
type ProfileRequest struct {
	Age                   *float64 `json:"age" validate:"required,gt=0"`
	Weight                *float64 `json:"weight" validate:"required,gt=0"`
	TargetWeight          *float64 `json:"targetWeight" validate:"required,gt=0"`
	Height                *float64 `json:"height" validate:"required,gt=0"`
	Gender                string   `json:"gender" validate:"required"`
	DailyPhysicalActivity string   `json:"daily_physical_activity" validate:"required"`
	DietaryPreferences    []string `json:"dietary_preferences"`
	Allergies             []string `json:"allergies"`
}

func (p *ProfileRequest) toDomain() mealplan.UserProfile {
	return mealplan.UserProfile{
		Age:                *p.Age,
		CurrentWeight:      *p.Weight,
		TargetWeight:       *p.TargetWeight,
		Height:             *p.Height,
		Gender:             p.Gender,
		ActivityLevel:      p.DailyPhysicalActivity,
		DietaryPreferences: p.DietaryPreferences,
		Allergies:          p.Allergies,
	}
}

// UpdateMealPlanRequest is the body of an update. Profile may be omitted
// when the account already has one on file.
type UpdateMealPlanRequest struct {
	Prompt           string          `json:"prompt" validate:"required"`
	PreviousMealPlan json.RawMessage `json:"previousMealPlan" validate:"required"`
	Profile          *ProfileRequest `json:"profile"`
}

// MealPlanResponse is returned by every successful meal plan endpoint
type MealPlanResponse struct {
	Email     string            `json:"email"`
	MealPlan  mealplan.MealPlan `json:"meal_plan"`
	Version   int64             `json:"version"`
	Provider  string            `json:"provider,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toResponse(rec *mealplan.Record) MealPlanResponse {
	return MealPlanResponse{
		Email:     rec.Email,
		MealPlan:  rec.Plan,
		Version:   rec.Version,
		Provider:  rec.Provider,
		UpdatedAt: rec.UpdatedAt,
	}
}

// GenerateMealPlan handles POST /DailyMealPlan/{email}
func (h *MealPlanHandlers) GenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rec, err := h.service.Generate(r.Context(), chi.URLParam(r, "email"), req.toDomain())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toResponse(rec))
}

// UpdateMealPlan handles POST /DailyMealPlan/UpdateMealPlan/{email}
func (h *MealPlanHandlers) UpdateMealPlan(w http.ResponseWriter, r *http.Request) {
	var req UpdateMealPlanRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	previous, err := h.plans.Parse(string(req.PreviousMealPlan))
	if err != nil {
		writeError(w, r, h.logger, errors.NewSchemaMismatchError(err))
		return
	}

	cmd := inbound.UpdateMealPlanCommand{
		Instruction: req.Prompt,
		Previous:    *previous,
	}
	if req.Profile != nil {
		profile := req.Profile.toDomain()
		cmd.Profile = &profile
	}

	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "email"), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toResponse(rec))
}

// GetMealPlan handles GET /user-meal-plan/get-meal-plan/{email}
func (h *MealPlanHandlers) GetMealPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toResponse(rec))
}

// AddMealPlan handles POST /user-meal-plan/add-meal-plan/{email}
func (h *MealPlanHandlers) AddMealPlan(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	plan, err := h.plans.Parse(string(raw))
	if err != nil {
		writeError(w, r, h.logger, errors.NewSchemaMismatchError(err))
		return
	}

	rec, err := h.service.Put(r.Context(), chi.URLParam(r, "email"), *plan)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toResponse(rec))
}

// bind decodes and validates a request body
func (h *MealPlanHandlers) bind(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationError(err.Error())
	}

	out := make([]errors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		msg := fmt.Sprintf("%s failed %s", field, fe.Tag())
		switch fe.Tag() {
		case "required":
			msg = field + " is required"
		case "gt":
			msg = field + " must be greater than " + fe.Param()
		}

		out = append(out, errors.ValidationError{Field: field, Tag: fe.Tag(), Message: msg})
	}
	return errors.NewValidationErrors(out)
}
