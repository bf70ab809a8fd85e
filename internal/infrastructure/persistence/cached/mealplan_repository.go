// Package cached provides a read-through cache in front of the meal plan store
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nutriplan/mealplan/internal/domain/mealplan"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// MealPlanRepository caches records by email. The store stays the source of
// truth; cache failures are logged and never fail a request.
type MealPlanRepository struct {
	store  outbound.MealPlanRepository
	cache  outbound.CacheRepository
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewMealPlanRepository wraps store with cache
func NewMealPlanRepository(store outbound.MealPlanRepository, cache outbound.CacheRepository, ttl time.Duration, prefix string, logger *zap.Logger) *MealPlanRepository {
	return &MealPlanRepository{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.Named("plan-cache"),
	}
}

var _ outbound.MealPlanRepository = (*MealPlanRepository)(nil)

func (r *MealPlanRepository) key(email string) string {
	return r.prefix + "meal_plan:" + mealplan.NormalizeEmail(email)
}

// GetByEmail serves from cache when possible and fills it on a miss
func (r *MealPlanRepository) GetByEmail(ctx context.Context, email string) (*mealplan.Record, error) {
	key := r.key(email)

	data, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var rec mealplan.Record
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			return &rec, nil
		}
		r.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		_ = r.cache.Delete(ctx, key)
	case !errors.Is(err, outbound.ErrCacheMiss):
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	rec, err := r.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, rec)
	return rec, nil
}

// Upsert writes to the store, then refreshes the cache entry
func (r *MealPlanRepository) Upsert(ctx context.Context, email string, plan mealplan.MealPlan, provider string) (*mealplan.Record, error) {
	key := r.key(email)

	rec, err := r.store.Upsert(ctx, email, plan, provider)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, key, rec)
	return rec, nil
}

// fill caches rec unless a later version is already cached, so a slow
// reader cannot replace a plan written after its store read.
func (r *MealPlanRepository) fill(ctx context.Context, key string, rec *mealplan.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	stored, err := r.cache.SetIfNewer(ctx, key, data, rec.Version, r.ttl)
	if err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		// a stale entry must not outlive a newer write
		_ = r.cache.Delete(ctx, key)
		return
	}
	if !stored {
		r.logger.Debug("Kept newer cache entry", zap.String("key", key), zap.Int64("version", rec.Version))
	}
}
