//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/nutriplan/mealplan/internal/infrastructure/config"
	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/nutriplan/mealplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCacheRepository_AgainstRedis(t *testing.T) {
	addr := testutils.SetupTestRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, config.RedisConfig{}, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewCacheRepository(client, zaptest.NewLogger(t))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "plan:a@example.com", []byte(`{"v":1}`), time.Minute))

	got, err := repo.Get(ctx, "plan:a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), got)

	ok, err := repo.Exists(ctx, "plan:a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, "plan:a@example.com"))
	ok, err = repo.Exists(ctx, "plan:a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepository_SetIfNewerAgainstRedis(t *testing.T) {
	addr := testutils.SetupTestRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, config.RedisConfig{}, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewCacheRepository(client, zaptest.NewLogger(t))
	key := "plan:b@example.com"

	stored, err := repo.SetIfNewer(ctx, key, []byte(`{"version":2}`), 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = repo.SetIfNewer(ctx, key, []byte(`{"version":1}`), 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":2}`), got)

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	stored, err = repo.SetIfNewer(ctx, key, []byte(`{"version":3}`), 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
}
