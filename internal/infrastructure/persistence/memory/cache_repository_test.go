package memory

import (
	"context"
	"testing"
	"time"

	"github.com/nutriplan/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepository_SetGetDelete(t *testing.T) {
	repo := NewCacheRepository(0)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, "k"))
	_, err = repo.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_Expiry(t *testing.T) {
	repo := NewCacheRepository(0)
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	require.NoError(t, repo.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, repo.Set(ctx, "default", []byte("2"), 0))

	clock = clock.Add(2 * time.Second)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	ok, _ := repo.Exists(ctx, "short")
	assert.False(t, ok)

	got, err := repo.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	clock = clock.Add(defaultTTL)
	repo.sweep()
	assert.Equal(t, 0, repo.Len())
}

func TestCacheRepository_CopiesValues(t *testing.T) {
	repo := NewCacheRepository(0)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, repo.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestCacheRepository_CloseIsIdempotent(t *testing.T) {
	repo := NewCacheRepository(time.Millisecond)
	repo.Close()
	assert.NotPanics(t, repo.Close)
}

func TestCacheRepository_SetIfNewer(t *testing.T) {
	repo := NewCacheRepository(0)
	ctx := context.Background()

	stored, err := repo.SetIfNewer(ctx, "plan", []byte("v2"), 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = repo.SetIfNewer(ctx, "plan", []byte("v1"), 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	stored, err = repo.SetIfNewer(ctx, "plan", []byte("v2 again"), 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := repo.Get(ctx, "plan")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	stored, err = repo.SetIfNewer(ctx, "plan", []byte("v3"), 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
	got, _ = repo.Get(ctx, "plan")
	assert.Equal(t, []byte("v3"), got)
}

func TestCacheRepository_SetIfNewerIgnoresExpiredEntry(t *testing.T) {
	repo := NewCacheRepository(0)
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	_, err := repo.SetIfNewer(ctx, "plan", []byte("v5"), 5, time.Second)
	require.NoError(t, err)
	clock = clock.Add(2 * time.Second)

	stored, err := repo.SetIfNewer(ctx, "plan", []byte("v1"), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
}
