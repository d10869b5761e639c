package cache

import (
	"context"
	"testing"
	"time"

	"scorer-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLeaderboardCache(rdb, time.Minute), mr
}

var board = []models.LeaderboardEntry{
	{UserID: "a", Username: "alice", MatchesPlayed: 2, Wins: 1, Points: 4},
	{UserID: "b", Username: "bob", MatchesPlayed: 1, Points: 1},
}

func TestLeaderboardKey(t *testing.T) {
	assert.Equal(t, "leaderboard:a:all", LeaderboardKey("a", ""))
	assert.Equal(t, "leaderboard:a:2025", LeaderboardKey("a", "2025"))
}

func TestSetThenGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "a", "2025")
	assert.False(t, ok)

	c.Set(ctx, "a", "2025", c.Snapshot(ctx, []string{"a", "b"}), board)

	got, ok := c.Get(ctx, "a", "2025")
	require.True(t, ok)
	assert.Equal(t, board, got)
	assert.Equal(t, time.Minute, mr.TTL(LeaderboardKey("a", "2025")))

	_, ok = c.Get(ctx, "a", "")
	assert.False(t, ok, "years are cached separately")
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", "", c.Snapshot(ctx, []string{"a"}), board)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "a", "")
	assert.False(t, ok)
}

func TestInvalidateDropsEveryBoardCoveringPeer(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", "", c.Snapshot(ctx, []string{"a", "b"}), board)
	c.Set(ctx, "a", "2025", c.Snapshot(ctx, []string{"a", "b"}), board)
	c.Set(ctx, "b", "", c.Snapshot(ctx, []string{"b", "a"}), board)
	c.Set(ctx, "c", "", c.Snapshot(ctx, []string{"c"}), board)

	c.Invalidate(ctx, "b")

	for _, viewer := range []struct{ id, year string }{{"a", ""}, {"a", "2025"}, {"b", ""}} {
		_, ok := c.Get(ctx, viewer.id, viewer.year)
		assert.False(t, ok, "board %s/%s should be gone", viewer.id, viewer.year)
	}
	_, ok := c.Get(ctx, "c", "")
	assert.True(t, ok)
}

func TestSetSkipsBoardComputedBeforeInvalidation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	snap := c.Snapshot(ctx, []string{"a", "b"})
	c.Invalidate(ctx, "b")
	c.Set(ctx, "a", "", snap, board)

	_, ok := c.Get(ctx, "a", "")
	assert.False(t, ok, "a board computed before the invalidation must not be stored")

	c.Set(ctx, "a", "", c.Snapshot(ctx, []string{"a", "b"}), board)
	_, ok = c.Get(ctx, "a", "")
	assert.True(t, ok)
}

func TestInvalidationOfOtherPeersDoesNotBlockSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	snap := c.Snapshot(ctx, []string{"a", "b"})
	c.Invalidate(ctx, "z")
	c.Set(ctx, "a", "", snap, board)

	_, ok := c.Get(ctx, "a", "")
	assert.True(t, ok)
}

func TestMalformedEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(LeaderboardKey("a", ""), "{not json"))

	_, ok := c.Get(context.Background(), "a", "")
	assert.False(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*LeaderboardCache{nil, NewLeaderboardCache(nil, time.Minute)} {
		c.Set(ctx, "a", "", c.Snapshot(ctx, []string{"a"}), board)
		_, ok := c.Get(ctx, "a", "")
		assert.False(t, ok)
		c.Invalidate(ctx, "a")
	}
}

func TestUnreachableRedisFailsOpen(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	ctx := context.Background()

	c.Set(ctx, "a", "", c.Snapshot(ctx, []string{"a"}), board)
	_, ok := c.Get(ctx, "a", "")
	assert.False(t, ok)
	c.Invalidate(ctx, "a")
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	client, err = Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = Connect(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
