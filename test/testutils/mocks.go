// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/account"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockProvider provides a mock implementation of outbound.LLMProvider
type MockProvider struct {
	mock.Mock
	name  string
	model string
}

// NewMockProvider creates a mock provider with a fixed name and model
func NewMockProvider(name, model string) *MockProvider {
	return &MockProvider{name: name, model: model}
}

// Name returns the provider name
func (m *MockProvider) Name() string { return m.name }

// Model returns the model identifier
func (m *MockProvider) Model() string { return m.model }

// Generate returns the configured raw text or error
func (m *MockProvider) Generate(ctx context.Context, req outbound.LLMRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// HealthCheck returns the configured error
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Providers converts mock providers into a roster slice
func Providers(mocks ...*MockProvider) []outbound.LLMProvider {
	out := make([]outbound.LLMProvider, 0, len(mocks))
	for _, m := range mocks {
		out = append(out, m)
	}
	return out
}

// MockMealPlanRepository provides a mock implementation of MealPlanRepository
type MockMealPlanRepository struct {
	mock.Mock
}

// GetByEmail returns the configured record or error
func (m *MockMealPlanRepository) GetByEmail(ctx context.Context, email string) (*mealplan.Record, error) {
	args := m.Called(ctx, email)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.Record), nil
}

// Upsert returns the configured record or error
func (m *MockMealPlanRepository) Upsert(ctx context.Context, email string, plan mealplan.MealPlan, provider string) (*mealplan.Record, error) {
	args := m.Called(ctx, email, plan, provider)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.Record), nil
}

// InMemoryMealPlanRepository is a working MealPlanRepository for service tests
type InMemoryMealPlanRepository struct {
	mu      sync.RWMutex
	records map[string]mealplan.Record
}

// NewInMemoryMealPlanRepository creates an empty store
func NewInMemoryMealPlanRepository() *InMemoryMealPlanRepository {
	return &InMemoryMealPlanRepository{records: make(map[string]mealplan.Record)}
}

// GetByEmail returns the stored record
func (r *InMemoryMealPlanRepository) GetByEmail(_ context.Context, email string) (*mealplan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[strings.ToLower(email)]
	if !ok {
		return nil, mealplan.ErrNotFound
	}
	return &rec, nil
}

// Upsert overwrites the stored record
func (r *InMemoryMealPlanRepository) Upsert(_ context.Context, email string, plan mealplan.MealPlan, provider string) (*mealplan.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(email)
	rec := r.records[key]
	rec.Email = key
	rec.Plan = plan
	rec.Provider = provider
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	r.records[key] = rec
	return &rec, nil
}

// Count returns the number of stored plans
func (r *InMemoryMealPlanRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// InMemoryAccountRepository is a working AccountRepository for service tests
type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
}

// NewInMemoryAccountRepository creates an empty account store
func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: make(map[string]account.Account)}
}

// FindByEmail returns the stored account
func (r *InMemoryAccountRepository) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[strings.ToLower(email)]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &acc, nil
}

// SaveProfile creates or updates the account profile
func (r *InMemoryAccountRepository) SaveProfile(_ context.Context, email string, profile mealplan.UserProfile) error {
	acc, err := account.New(email, profile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.accounts[acc.Email]; ok {
		acc.CreatedAt = existing.CreatedAt
	}
	r.accounts[acc.Email] = *acc
	return nil
}
