// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nutriplan/mealplan/internal/ports/outbound"
)

const defaultTTL = 24 * time.Hour

// CacheItem represents a cached item
type CacheItem struct {
	Value     []byte
	Version   int64
	ExpiresAt time.Time
}

// CacheRepository implements an in-process cache with TTL expiry
type CacheRepository struct {
	data  map[string]CacheItem
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewCacheRepository creates a cache and starts its sweeper. Call Close to
// stop the sweeper.
func NewCacheRepository(sweepInterval time.Duration) *CacheRepository {
	repo := &CacheRepository{
		data: make(map[string]CacheItem),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go repo.cleanup(sweepInterval)
	}
	return repo
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value, returning outbound.ErrCacheMiss when absent or expired
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	if !exists {
		return nil, outbound.ErrCacheMiss
	}
	if r.now().After(item.ExpiresAt) {
		r.mutex.Lock()
		if cur, ok := r.data[key]; ok && r.now().After(cur.ExpiresAt) {
			delete(r.data, key)
		}
		r.mutex.Unlock()
		return nil, outbound.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a value with TTL. A zero TTL uses the default of 24 hours.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	r.mutex.Lock()
	r.data[key] = CacheItem{Value: buf, ExpiresAt: r.now().Add(ttl)}
	r.mutex.Unlock()

	return nil
}

// SetIfNewer stores value unless a live entry holds version or a later one
func (r *CacheRepository) SetIfNewer(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if cur, ok := r.data[key]; ok && !now.After(cur.ExpiresAt) && cur.Version >= version {
		return false, nil
	}
	r.data[key] = CacheItem{Value: buf, Version: version, ExpiresAt: now.Add(ttl)}
	return true, nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	delete(r.data, key)
	r.mutex.Unlock()
	return nil
}

// Exists checks if a live key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.RLock()
	item, exists := r.data[key]
	r.mutex.RUnlock()

	return exists && !r.now().After(item.ExpiresAt), nil
}

// Len returns the number of stored items, including expired ones not yet swept
func (r *CacheRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}

// Close stops the sweeper
func (r *CacheRepository) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *CacheRepository) sweep() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	for key, item := range r.data {
		if now.After(item.ExpiresAt) {
			delete(r.data, key)
		}
	}
}

func (r *CacheRepository) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}
