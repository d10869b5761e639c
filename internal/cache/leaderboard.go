// Package cache keeps computed leaderboards in Redis. A nil or unreachable
// Redis turns every call into a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"scorer-backend/internal/metrics"
	"scorer-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	leaderboardKeyFmt = "leaderboard:%s:%s"
	peerIndexKeyFmt   = "leaderboard:peer:%s"
	peerGenKeyFmt     = "leaderboard:gen:%s"
	allYears          = "all"
)

// Connect opens a Redis client from a redis:// URL or a host:port address
// and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// LeaderboardCache stores leaderboards per viewer and year. Each stored
// board is indexed under every peer it covers so a change to any peer's
// matches or friendships drops all boards that include them. Every
// invalidation also bumps a per-peer generation, and a board computed
// before a bump is never stored.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache creates a cache. client may be nil.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) enabled() bool {
	return c != nil && c.client != nil
}

// LeaderboardKey returns the cache key of viewerID's board for year.
func LeaderboardKey(viewerID, year string) string {
	if year == "" {
		year = allYears
	}
	return fmt.Sprintf(leaderboardKeyFmt, viewerID, year)
}

func peerIndexKey(userID string) string {
	return fmt.Sprintf(peerIndexKeyFmt, userID)
}

func peerGenKey(userID string) string {
	return fmt.Sprintf(peerGenKeyFmt, userID)
}

var errStaleBoard = errors.New("leaderboard peers changed while computing")

// Snapshot holds the peer generations observed before a board is computed
type Snapshot struct {
	peerIDs []string
	gens    []string
	ok      bool
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func generations(ctx context.Context, r multiGetter, peerIDs []string) ([]string, error) {
	keys := make([]string, len(peerIDs))
	for i, id := range peerIDs {
		keys[i] = peerGenKey(id)
	}
	values, err := r.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	gens := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			gens[i] = s
		}
	}
	return gens, nil
}

// Snapshot records the current generation of each peer. Take it before
// reading the matches a board is computed from.
func (c *LeaderboardCache) Snapshot(ctx context.Context, peerIDs []string) Snapshot {
	if !c.enabled() || len(peerIDs) == 0 {
		return Snapshot{}
	}
	gens, err := generations(ctx, c.client, peerIDs)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read leaderboard generations")
		return Snapshot{}
	}
	return Snapshot{peerIDs: slices.Clone(peerIDs), gens: gens, ok: true}
}

// Get returns the cached board, if any.
func (c *LeaderboardCache) Get(ctx context.Context, viewerID, year string) ([]models.LeaderboardEntry, bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, LeaderboardKey(viewerID, year)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.LeaderboardCacheTotal.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("user_id", viewerID).Msg("Leaderboard cache read failed")
			return nil, false
		}
		metrics.LeaderboardCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		metrics.LeaderboardCacheTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("user_id", viewerID).Msg("Discarding malformed cached leaderboard")
		return nil, false
	}
	metrics.LeaderboardCacheTotal.WithLabelValues("hit").Inc()
	return entries, true
}

// Set stores viewerID's board and indexes it under every peer in snap.
// The board is dropped when any peer was invalidated after snap was taken.
func (c *LeaderboardCache) Set(ctx context.Context, viewerID, year string, snap Snapshot, entries []models.LeaderboardEntry) {
	if !c.enabled() || !snap.ok {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		log.Warn().Err(err).Str("user_id", viewerID).Msg("Failed to encode leaderboard for cache")
		return
	}

	key := LeaderboardKey(viewerID, year)
	genKeys := make([]string, len(snap.peerIDs))
	for i, id := range snap.peerIDs {
		genKeys[i] = peerGenKey(id)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generations(ctx, tx, snap.peerIDs)
		if err != nil {
			return err
		}
		if !slices.Equal(current, snap.gens) {
			return errStaleBoard
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			for _, id := range snap.peerIDs {
				pipe.SAdd(ctx, peerIndexKey(id), key)
				pipe.Expire(ctx, peerIndexKey(id), c.ttl)
			}
			return nil
		})
		return err
	}, genKeys...)
	if errors.Is(err, errStaleBoard) || errors.Is(err, redis.TxFailedErr) {
		metrics.LeaderboardCacheTotal.WithLabelValues("stale").Inc()
		log.Debug().Str("user_id", viewerID).Msg("Skipping stale leaderboard")
		return
	}
	if err != nil {
		metrics.LeaderboardCacheTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("user_id", viewerID).Msg("Leaderboard cache write failed")
	}
}

// Invalidate drops every cached board that covers any of userIDs.
func (c *LeaderboardCache) Invalidate(ctx context.Context, userIDs ...string) {
	if !c.enabled() {
		return
	}

	for _, id := range userIDs {
		if err := c.client.Incr(ctx, peerGenKey(id)).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to bump leaderboard generation")
		}
		index := peerIndexKey(id)
		keys, err := c.client.SMembers(ctx, index).Result()
		if err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to read leaderboard index")
			continue
		}
		if err := c.client.Del(ctx, append(keys, index)...).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to invalidate leaderboards")
		}
	}
}
