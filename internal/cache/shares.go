package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shareStatsKeyPrefix = "post:shares:"

// SharePlatforms are the platforms tracked by the share stats endpoints.
var SharePlatforms = []string{
	"twitter", "facebook", "linkedin", "reddit", "whatsapp", "discord", "email", "copy",
}

// ShareStatsCache tracks per-platform share counters for posts. Share counts
// are read-side only and never reconciled into PostgreSQL.
type ShareStatsCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewShareStatsCache creates a ShareStatsCache backed by the given Redis client.
func NewShareStatsCache(rdb *redis.Client, logger *zap.Logger) *ShareStatsCache {
	return &ShareStatsCache{rdb: rdb, logger: logger.Named("share-cache")}
}

func shareKey(postID uint, platform string) string {
	return fmt.Sprintf("%s%d:%s", shareStatsKeyPrefix, postID, platform)
}

// IncrementShare atomically bumps the share counter for one platform and
// returns the new count.
func (c *ShareStatsCache) IncrementShare(ctx context.Context, postID uint, platform string) (int64, error) {
	return c.rdb.Incr(ctx, shareKey(postID, platform)).Result()
}

// GetStats batch-reads the share counters for the given platforms in one
// round trip. Platforms never shared on map to 0.
func (c *ShareStatsCache) GetStats(ctx context.Context, postID uint, platforms []string) (map[string]int64, error) {
	stats := make(map[string]int64, len(platforms))
	if len(platforms) == 0 {
		return stats, nil
	}

	keys := make([]string, len(platforms))
	for i, p := range platforms {
		keys[i] = shareKey(postID, p)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range vals {
		if v == nil {
			stats[platforms[i]] = 0
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for key %s", v, keys[i])
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric share count for key %s: %w", keys[i], err)
		}
		stats[platforms[i]] = n
	}
	return stats, nil
}
