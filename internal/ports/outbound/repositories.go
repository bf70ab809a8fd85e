// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/account"
	"github.com/nutriplan/mealplan/internal/domain/mealplan"
)

// MealPlanRepository stores the single current plan per email
type MealPlanRepository interface {
	// GetByEmail returns mealplan.ErrNotFound when no plan is stored
	GetByEmail(ctx context.Context, email string) (*mealplan.Record, error)
	// Upsert overwrites any stored plan atomically and bumps its version.
	// provider names the roster entry that produced the plan, if any.
	Upsert(ctx context.Context, email string, plan mealplan.MealPlan, provider string) (*mealplan.Record, error)
}

// AccountRepository persists the last submitted profile per email
type AccountRepository interface {
	// FindByEmail returns account.ErrNotFound when no account exists
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	SaveProfile(ctx context.Context, email string, profile mealplan.UserProfile) error
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfNewer stores value unless the live entry already carries version
	// or a later one. The check and the write are atomic. It reports whether
	// value was stored.
	SetIfNewer(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
