// Package cache provides Redis-backed counters for high-frequency events
// (post views, tag usage, share stats) that are too hot to commit
// transactionally on every hit. Counters are eventually consistent with
// PostgreSQL; the jobs package reconciles them out of band.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	postViewsKeyPrefix = "post:views:"
	postViewsDirtySet  = "posts:with-views"
)

// PostViewsCache tracks per-post view counters plus the dirty set of post ids
// with unflushed changes awaiting reconciliation.
type PostViewsCache struct {
	rdb    *redis.Client
	logger *zap.Logger

	// warned suppresses repeated cache-unavailable warnings; set once per
	// process lifetime, reset only on restart.
	warned atomic.Bool
}

// NewPostViewsCache creates a PostViewsCache backed by the given Redis client.
func NewPostViewsCache(rdb *redis.Client, logger *zap.Logger) *PostViewsCache {
	return &PostViewsCache{rdb: rdb, logger: logger.Named("views-cache")}
}

func viewKey(postID uint) string {
	return postViewsKeyPrefix + strconv.FormatUint(uint64(postID), 10)
}

// Ping verifies the cache is reachable.
func (c *PostViewsCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// IncrementView atomically increments the view counter for postID, marks the
// post dirty for reconciliation, and returns the new count. Safe under
// concurrent callers: both writes go through Redis atomic primitives.
func (c *PostViewsCache) IncrementView(ctx context.Context, postID uint) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, viewKey(postID))
	pipe.SAdd(ctx, postViewsDirtySet, strconv.FormatUint(uint64(postID), 10))
	if _, err := pipe.Exec(ctx); err != nil {
		c.warnUnavailable(err)
		return 0, err
	}
	return incr.Val(), nil
}

// GetViews returns the cached view count for postID, or 0 if absent.
func (c *PostViewsCache) GetViews(ctx context.Context, postID uint) (int64, error) {
	n, err := c.rdb.Get(ctx, viewKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.warnUnavailable(err)
		return 0, err
	}
	return n, nil
}

// GetMultipleViews batch-reads the counters for all given post ids in one
// round trip. Missing ids map to 0.
func (c *PostViewsCache) GetMultipleViews(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = viewKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.warnUnavailable(err)
		return nil, err
	}

	for i, v := range vals {
		if v == nil {
			result[postIDs[i]] = 0
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for key %s", v, keys[i])
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric view count for key %s: %w", keys[i], err)
		}
		result[postIDs[i]] = n
	}
	return result, nil
}

// DirtyPosts returns every post id with pending view-count changes.
func (c *PostViewsCache) DirtyPosts(ctx context.Context) ([]uint, error) {
	members, err := c.rdb.SMembers(ctx, postViewsDirtySet).Result()
	if err != nil {
		c.warnUnavailable(err)
		return nil, err
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			c.logger.Warn("Skipping malformed dirty set member", zap.String("member", m))
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func (c *PostViewsCache) warnUnavailable(err error) {
	if c.warned.CompareAndSwap(false, true) {
		c.logger.Warn("Views cache unavailable, counters will lag until it recovers", zap.Error(err))
	}
}
