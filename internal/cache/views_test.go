package cache_test

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyrsocial/zephyr/backend/internal/cache"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestIncrementView(t *testing.T) {
	t.Parallel()
	rdb := setupRedis(t)
	views := cache.NewPostViewsCache(rdb, zap.NewNop())
	ctx := t.Context()

	n, err := views.IncrementView(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = views.IncrementView(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The post must now be in the dirty set.
	dirty, err := views.DirtyPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{42}, dirty)
}

func TestGetViewsMissing(t *testing.T) {
	t.Parallel()
	rdb := setupRedis(t)
	views := cache.NewPostViewsCache(rdb, zap.NewNop())

	n, err := views.GetViews(t.Context(), 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGetMultipleViews(t *testing.T) {
	t.Parallel()
	rdb := setupRedis(t)
	views := cache.NewPostViewsCache(rdb, zap.NewNop())
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		_, err := views.IncrementView(ctx, 1)
		require.NoError(t, err)
	}
	_, err := views.IncrementView(ctx, 2)
	require.NoError(t, err)

	counts, err := views.GetMultipleViews(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{1: 3, 2: 1, 3: 0}, counts)
}

func TestConcurrentIncrements(t *testing.T) {
	t.Parallel()
	rdb := setupRedis(t)
	views := cache.NewPostViewsCache(rdb, zap.NewNop())
	ctx := t.Context()

	const callers = 20
	const perCaller = 10

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				_, err := views.IncrementView(ctx, 7)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	n, err := views.GetViews(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(callers*perCaller), n)
}
