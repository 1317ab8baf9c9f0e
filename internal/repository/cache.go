package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gymnotifier/internal/entity"
	"gymnotifier/pkg/cache"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	_unreadKeyPrefix = "unread"
	_globalStatsKey  = "stats:global"
	_unreadTTL       = 5 * time.Minute
)

type CacheRepository struct {
	rdb      *redis.Client
	statsTTL time.Duration
}

func NewCacheRepository(rdb *redis.Client, statsTTL time.Duration) *CacheRepository {
	return &CacheRepository{rdb: rdb, statsTTL: statsTTL}
}

func (c *CacheRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "repository.cache.UnreadCount"

	val, err := c.rdb.Get(ctx, cache.Key(_unreadKeyPrefix, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse cached value: %w", op, err)
	}

	return count, nil
}

func (c *CacheRepository) SetUnreadCount(ctx context.Context, userID uuid.UUID, count int64) error {
	const op = "repository.cache.SetUnreadCount"

	if err := c.rdb.Set(ctx, cache.Key(_unreadKeyPrefix, userID), count, _unreadTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InvalidateUnread drops the cached counter after any state transition
// that can change it.
func (c *CacheRepository) InvalidateUnread(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.cache.InvalidateUnread"

	if err := c.rdb.Del(ctx, cache.Key(_unreadKeyPrefix, userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *CacheRepository) GlobalStats(ctx context.Context) (*entity.CampaignStats, error) {
	const op = "repository.cache.GlobalStats"

	val, err := c.rdb.Get(ctx, _globalStatsKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var stats entity.CampaignStats
	if err := cache.Deserialize(val, &stats); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

func (c *CacheRepository) SetGlobalStats(ctx context.Context, stats *entity.CampaignStats) error {
	const op = "repository.cache.SetGlobalStats"

	data, err := cache.Serialize(stats)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.Set(ctx, _globalStatsKey, data, c.statsTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
