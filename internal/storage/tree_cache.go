package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
)

// Cache keys for tree listings.
const (
	cacheKeyAllTrees    = "trees:all"
	cacheKeyLeaderboard = "trees:leaderboard"
)

// TreeCache caches tree listings in Redis with a short TTL. Listings are
// read far more often than trees are placed, and a placement invalidates
// the affected keys so readers never see a stale forest for long.
type TreeCache struct {
	redis  *RedisCache
	ttl    time.Duration
	logger *logging.Logger
}

// NewTreeCache creates a tree listing cache
func NewTreeCache(redis *RedisCache, ttl time.Duration, logger *logging.Logger) *TreeCache {
	return &TreeCache{redis: redis, ttl: ttl, logger: logger}
}

func categoryKey(category string) string {
	return fmt.Sprintf("trees:category:%s", category)
}

// GetAll returns the cached full listing, or found=false on a miss.
func (c *TreeCache) GetAll(ctx context.Context) ([]*models.Tree, bool) {
	return c.get(ctx, cacheKeyAllTrees)
}

// SetAll caches the full listing
func (c *TreeCache) SetAll(ctx context.Context, trees []*models.Tree) error {
	return c.set(ctx, cacheKeyAllTrees, trees)
}

// GetByCategory returns the cached category listing, or found=false on a miss.
func (c *TreeCache) GetByCategory(ctx context.Context, category string) ([]*models.Tree, bool) {
	return c.get(ctx, categoryKey(category))
}

// SetByCategory caches a category listing
func (c *TreeCache) SetByCategory(ctx context.Context, category string, trees []*models.Tree) error {
	return c.set(ctx, categoryKey(category), trees)
}

// GetLeaderboard returns the cached leaderboard, or found=false on a miss.
func (c *TreeCache) GetLeaderboard(ctx context.Context) ([]*models.Tree, bool) {
	return c.get(ctx, cacheKeyLeaderboard)
}

// SetLeaderboard caches the leaderboard. Click counts drift within the TTL,
// which the leaderboard tolerates.
func (c *TreeCache) SetLeaderboard(ctx context.Context, trees []*models.Tree) error {
	return c.set(ctx, cacheKeyLeaderboard, trees)
}

// InvalidatePlacement drops the keys a new tree makes stale.
func (c *TreeCache) InvalidatePlacement(ctx context.Context, category string) error {
	return c.redis.Del(ctx, cacheKeyAllTrees, categoryKey(category))
}

// get treats both a miss and a Redis failure as "not cached", but only the
// failure is worth logging.
func (c *TreeCache) get(ctx context.Context, key string) ([]*models.Tree, bool) {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if !IsMiss(err) {
			c.logger.WithError(err).WithField("key", key).Warn("Tree cache read failed")
		}
		return nil, false
	}

	var trees []*models.Tree
	if err := json.Unmarshal([]byte(raw), &trees); err != nil {
		return nil, false
	}

	return trees, true
}

func (c *TreeCache) set(ctx context.Context, key string, trees []*models.Tree) error {
	raw, err := json.Marshal(trees)
	if err != nil {
		return fmt.Errorf("failed to marshal trees for cache: %w", err)
	}
	return c.redis.Set(ctx, key, raw, c.ttl)
}
