package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nutriplan/mealplan/internal/application/generation"
	mealplanapp "github.com/nutriplan/mealplan/internal/application/mealplan"
	"github.com/nutriplan/mealplan/internal/application/prompt"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/infrastructure/ai"
	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/handlers"
	"github.com/nutriplan/mealplan/internal/infrastructure/http/middleware"
	"github.com/nutriplan/mealplan/test/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type APITestSuite struct {
	suite.Suite
	plans   *testutils.InMemoryMealPlanRepository
	primary *testutils.MockProvider
	backup  *testutils.MockProvider
	handler http.Handler
}

func (s *APITestSuite) SetupTest() {
	s.plans = testutils.NewInMemoryMealPlanRepository()
	s.primary = testutils.NewMockProvider("primary", "llama-3.3-70b-versatile")
	s.backup = testutils.NewMockProvider("backup", "gemma2-9b-it")
	s.handler = s.newHandler(5 * time.Second)
}

func (s *APITestSuite) newHandler(requestTimeout time.Duration) http.Handler {
	logger := zaptest.NewLogger(s.T())
	roster := testutils.Providers(s.primary, s.backup)

	validator := generation.NewValidator(generation.MacroCheck{}, logger)
	invoker := generation.NewInvoker(roster, validator, logger)
	service := mealplanapp.NewService(s.plans, testutils.NewInMemoryAccountRepository(),
		prompt.NewBuilder(prompt.DefaultConfig()), invoker, validator, logger)

	cfg := &config.Config{Server: config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           8000,
		RequestTimeout: requestTimeout,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}}
	srv, err := NewServer(cfg, logger,
		handlers.NewMealPlanHandlers(service, validator, logger),
		handlers.NewHealthHandlers(ai.NewHealthChecker(roster, time.Second, logger), "test", logger))
	s.Require().NoError(err)
	return srv.Handler()
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func scenarioBody() map[string]interface{} {
	return map[string]interface{}{
		"age":                     30,
		"weight":                  80,
		"targetWeight":            70,
		"height":                  175,
		"gender":                  "male",
		"daily_physical_activity": "moderate",
	}
}

type envelope struct {
	Error struct {
		Code      string `json:"code"`
		Details   string `json:"details"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func (s *APITestSuite) decode(rec *httptest.ResponseRecorder, dst interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *APITestSuite) TestGenerateThenGet() {
	// Arrange
	plan := testutils.NewMealPlanBuilder().Build()
	s.primary.On("Generate", mock.Anything, mock.Anything).Return("```json\n"+mustJSON(plan)+"\n```", nil)

	// Act
	rec := s.do(http.MethodPost, "/DailyMealPlan/runner@example.com", scenarioBody())

	// Assert
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var created handlers.MealPlanResponse
	s.decode(rec, &created)
	s.Equal("runner@example.com", created.Email)
	s.Equal("primary", created.Provider)
	s.Equal(int64(1), created.Version)
	s.Equal(plan, created.MealPlan)
	s.NotEmpty(rec.Header().Get(middleware.RequestIDHeader))

	rec = s.do(http.MethodGet, "/user-meal-plan/get-meal-plan/runner@example.com", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var fetched handlers.MealPlanResponse
	s.decode(rec, &fetched)
	s.Equal(plan, fetched.MealPlan)
}

func (s *APITestSuite) TestGenerate_FallsBackToBackup() {
	plan := testutils.NewMealPlanBuilder().Build()
	s.primary.On("Generate", mock.Anything, mock.Anything).Return(`{"total_calories": 2000}`, nil)
	s.backup.On("Generate", mock.Anything, mock.Anything).Return(mustJSON(plan), nil)

	rec := s.do(http.MethodPost, "/DailyMealPlan/fallback@example.com", scenarioBody())

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var created handlers.MealPlanResponse
	s.decode(rec, &created)
	s.Equal("backup", created.Provider)
}

func (s *APITestSuite) TestGenerate_AllProvidersFail() {
	s.primary.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503 over capacity"))
	s.backup.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("429 rate limited"))

	rec := s.do(http.MethodPost, "/DailyMealPlan/none@example.com", scenarioBody())

	s.Equal(http.StatusBadGateway, rec.Code)
	var body envelope
	s.decode(rec, &body)
	s.Equal("GENERATION_FAILED", body.Error.Code)
	s.Contains(body.Error.Details, "429 rate limited")
	s.NotEmpty(body.Error.RequestID)
	s.Equal(0, s.plans.Count())
}

func (s *APITestSuite) TestGenerate_RequestDeadlineReturnsGatewayTimeout() {
	s.handler = s.newHandler(50 * time.Millisecond)
	s.primary.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return("", context.DeadlineExceeded)

	rec := s.do(http.MethodPost, "/DailyMealPlan/slow@example.com", scenarioBody())

	s.Equal(http.StatusGatewayTimeout, rec.Code)
	var body envelope
	s.decode(rec, &body)
	s.Equal("GENERATION_TIMEOUT", body.Error.Code)
	s.backup.AssertNotCalled(s.T(), "Generate", mock.Anything, mock.Anything)
	s.Equal(0, s.plans.Count())
}

func (s *APITestSuite) TestGenerate_RejectsIncompleteProfile() {
	body := scenarioBody()
	delete(body, "height")

	rec := s.do(http.MethodPost, "/DailyMealPlan/runner@example.com", body)

	s.Equal(http.StatusBadRequest, rec.Code)
	var env envelope
	s.decode(rec, &env)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Contains(env.Error.Details, "height is required")
	s.primary.AssertNotCalled(s.T(), "Generate", mock.Anything, mock.Anything)
}

func (s *APITestSuite) TestGenerate_MalformedJSON() {
	rec := s.do(http.MethodPost, "/DailyMealPlan/runner@example.com", `{"age": `)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestUpdate_WithInlineProfile() {
	previous := testutils.NewMealPlanBuilder().Build()
	lunch := previous.Lunch
	lunch.Name = "Vegetarian Lunch"
	updated := previous
	updated.Lunch = lunch
	s.primary.On("Generate", mock.Anything, mock.Anything).Return(mustJSON(updated), nil)

	profile := scenarioBody()
	rec := s.do(http.MethodPost, "/DailyMealPlan/UpdateMealPlan/runner@example.com", map[string]interface{}{
		"prompt":           "Make lunch vegetarian",
		"previousMealPlan": previous,
		"profile":          profile,
	})

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp handlers.MealPlanResponse
	s.decode(rec, &resp)
	s.Equal("Vegetarian Lunch", resp.MealPlan.Lunch.Name)
	s.Equal(previous.Breakfast, resp.MealPlan.Breakfast)
}

func (s *APITestSuite) TestUpdate_MissingPrompt() {
	rec := s.do(http.MethodPost, "/DailyMealPlan/UpdateMealPlan/runner@example.com", map[string]interface{}{
		"previousMealPlan": testutils.NewMealPlanBuilder().Build(),
	})

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestUpdate_UnknownAccountWithoutProfile() {
	rec := s.do(http.MethodPost, "/DailyMealPlan/UpdateMealPlan/ghost@example.com", map[string]interface{}{
		"prompt":           "less sugar",
		"previousMealPlan": testutils.NewMealPlanBuilder().Build(),
	})

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestAddMealPlan_RoundTrip() {
	plan := testutils.NewMealPlanBuilder().WithNotes("Eat slowly").Build()

	rec := s.do(http.MethodPost, "/user-meal-plan/add-meal-plan/manual@example.com", plan)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/user-meal-plan/get-meal-plan/manual@example.com", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp handlers.MealPlanResponse
	s.decode(rec, &resp)
	s.Equal(plan, resp.MealPlan)
	s.Empty(resp.Provider)
}

func (s *APITestSuite) TestAddMealPlan_MissingSlot() {
	var raw map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(mustJSON(testutils.NewMealPlanBuilder().Build())), &raw))
	delete(raw, "dinner")

	rec := s.do(http.MethodPost, "/user-meal-plan/add-meal-plan/manual@example.com", raw)

	s.Equal(http.StatusBadRequest, rec.Code)
	var env envelope
	s.decode(rec, &env)
	s.Equal("SCHEMA_MISMATCH", env.Error.Code)
	s.Equal(0, s.plans.Count())
}

func (s *APITestSuite) TestGetMealPlan_NotFound() {
	rec := s.do(http.MethodGet, "/user-meal-plan/get-meal-plan/nobody@example.com", nil)

	s.Equal(http.StatusNotFound, rec.Code)
	var env envelope
	s.decode(rec, &env)
	s.Equal("MEAL_PLAN_NOT_FOUND", env.Error.Code)
}

func (s *APITestSuite) TestHealthEndpoints() {
	s.primary.On("HealthCheck", mock.Anything).Return(nil)
	s.backup.On("HealthCheck", mock.Anything).Return(errors.New("down"))

	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/health/providers", nil)
	s.Equal(http.StatusOK, rec.Code)
	var status ai.HealthStatus
	s.decode(rec, &status)
	s.Equal(ai.StatusDegraded, status.Overall)
	s.Len(status.Providers, 2)
}

func mustJSON(plan mealplan.MealPlan) string {
	data, err := json.Marshal(plan)
	if err != nil {
		panic(err)
	}
	return string(data)
}
