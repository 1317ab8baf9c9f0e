package repository

import (
	"context"
	"testing"
	"time"

	"gymnotifier/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewCacheRepository(rdb, time.Minute), mr
}

func TestUnreadCountRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.UnreadCount(ctx, userID)
	require.ErrorIs(t, err, redis.Nil, "cold cache misses")

	require.NoError(t, repo.SetUnreadCount(ctx, userID, 7))

	count, err := repo.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestInvalidateUnread(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.SetUnreadCount(ctx, userID, 3))
	require.NoError(t, repo.InvalidateUnread(ctx, userID))

	_, err := repo.UnreadCount(ctx, userID)
	require.ErrorIs(t, err, redis.Nil)

	// Invalidating an absent key is not an error.
	require.NoError(t, repo.InvalidateUnread(ctx, userID))
}

func TestUnreadCountExpires(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.SetUnreadCount(ctx, userID, 4))
	mr.FastForward(6 * time.Minute)

	_, err := repo.UnreadCount(ctx, userID)
	require.ErrorIs(t, err, redis.Nil)
}

func TestGlobalStatsRoundTrip(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	_, err := repo.GlobalStats(ctx)
	require.ErrorIs(t, err, redis.Nil)

	stats := &entity.CampaignStats{
		Sent:     120,
		Opened:   40,
		Clicked:  12,
		OpenRate: 33.3,
	}
	require.NoError(t, repo.SetGlobalStats(ctx, stats))

	got, err := repo.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	// Honors the configured TTL.
	mr.FastForward(2 * time.Minute)
	_, err = repo.GlobalStats(ctx)
	require.ErrorIs(t, err, redis.Nil)
}
