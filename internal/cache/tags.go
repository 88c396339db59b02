package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tagCountKeyPrefix = "tag:count:"

// decrClampScript decrements a counter but never lets it go below zero.
// Plain DECR would, and a check-then-decrement from the client would race.
var decrClampScript = redis.NewScript(`
local v = redis.call('DECR', KEYS[1])
if v < 0 then
	redis.call('SET', KEYS[1], 0)
	return 0
end
return v
`)

// TagCountCache tracks how many posts currently use each tag. Counts change
// only through matched increment/decrement pairs tied to tag attach/detach
// events, and decrements clamp at zero.
type TagCountCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewTagCountCache creates a TagCountCache backed by the given Redis client.
func NewTagCountCache(rdb *redis.Client, logger *zap.Logger) *TagCountCache {
	return &TagCountCache{rdb: rdb, logger: logger.Named("tag-cache")}
}

func tagKey(name string) string {
	return tagCountKeyPrefix + name
}

// IncrementTagCount atomically bumps the usage counter for the tag.
func (c *TagCountCache) IncrementTagCount(ctx context.Context, name string) error {
	return c.rdb.Incr(ctx, tagKey(name)).Err()
}

// DecrementTagCount atomically lowers the usage counter, clamping at zero.
func (c *TagCountCache) DecrementTagCount(ctx context.Context, name string) error {
	return decrClampScript.Run(ctx, c.rdb, []string{tagKey(name)}).Err()
}

// GetTagCount returns the cached usage count for the tag, or 0 if absent.
func (c *TagCountCache) GetTagCount(ctx context.Context, name string) (int64, error) {
	n, err := c.rdb.Get(ctx, tagKey(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}
