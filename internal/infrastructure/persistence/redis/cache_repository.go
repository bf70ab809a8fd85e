// Package redis provides a Redis-backed cache repository
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheRepository implements outbound.CacheRepository on a Redis client
type CacheRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewClient creates a Redis client from configuration and verifies it
func NewClient(ctx context.Context, cfg config.RedisConfig, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return client, nil
}

// NewCacheRepository creates a new Redis cache repository
func NewCacheRepository(client redis.UniversalClient, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{
		client: client,
		logger: logger.Named("redis-cache"),
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Entries are hashes holding the payload and the version it was written at.
const (
	fieldData    = "d"
	fieldVersion = "v"
)

// setIfNewer writes the entry unless a stored version is at least ARGV[2]
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'd', ARGV[1], 'v', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Get retrieves a value, returning outbound.ErrCacheMiss for absent keys
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.HGet(ctx, key, fieldData).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbound.ErrCacheMiss
		}
		r.logger.Debug("Cache get failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// Set stores a value in cache with TTL, replacing any versioned entry
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldData, value, fieldVersion, 0)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// SetIfNewer stores value unless the entry already holds version or a later one
func (r *CacheRepository) SetIfNewer(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	stored, err := setIfNewer.Run(ctx, r.client, []string{key}, value, version, ttl.Milliseconds()).Int()
	if err != nil {
		r.logger.Error("Cache versioned set failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return stored == 1, nil
}

// Delete removes a value from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Cache exists check failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return n > 0, nil
}
