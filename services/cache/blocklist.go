package cache

import (
	"time"

	"trendradar/internal/domain"
	"trendradar/logger"
)

const blockKeyPrefix = "trendradar:blocked:"

// BlockList tracks platforms that recently served a bot challenge. A blocked
// platform is skipped by the orchestrator until the entry expires, so the
// pipeline stops hammering a site that is already suspicious of it.
type BlockList struct {
	cache CacheService
	ttl   time.Duration
}

// NewBlockList creates a block list on top of a cache backend.
func NewBlockList(cache CacheService, ttl time.Duration) *BlockList {
	return &BlockList{cache: cache, ttl: ttl}
}

// Block marks a platform as challenged for the configured TTL.
func (b *BlockList) Block(platform domain.Platform) {
	if b == nil || b.cache == nil {
		return
	}
	if err := b.cache.Set(blockKeyPrefix+string(platform), []byte("1"), b.ttl); err != nil {
		logger.Warn("Failed to mark platform %s as blocked: %v", platform, err)
	}
}

// IsBlocked reports whether a platform still has an active block entry.
// Cache errors (including a miss) read as not blocked.
func (b *BlockList) IsBlocked(platform domain.Platform) bool {
	if b == nil || b.cache == nil {
		return false
	}
	value, err := b.cache.Get(blockKeyPrefix + string(platform))
	return err == nil && len(value) > 0
}

// Unblock clears the block entry for a platform.
func (b *BlockList) Unblock(platform domain.Platform) {
	if b == nil || b.cache == nil {
		return
	}
	if err := b.cache.Delete(blockKeyPrefix + string(platform)); err != nil {
		logger.Debug("Failed to unblock platform %s: %v", platform, err)
	}
}
