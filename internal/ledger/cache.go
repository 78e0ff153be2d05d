package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StatsCache keeps per-account sales aggregates in Redis. A nil cache or nil
// client degrades to computing from the database every time. Concurrent
// misses for the same account collapse into a single rebuild.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStatsCache instantiates the cache helper.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(accountID uuid.UUID) string {
	return "stats:sales:" + accountID.String()
}

// Fetch loads cached stats or populates them using the loader.
func (c *StatsCache) Fetch(ctx context.Context, accountID uuid.UUID, loader func(context.Context) (Stats, error)) (Stats, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := statsKey(accountID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var stats Stats
		if uerr := json.Unmarshal(payload, &stats); uerr == nil {
			return stats, nil
		}
		// Corrupt entry; fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		stats, err := loader(ctx)
		if err != nil {
			return Stats{}, err
		}
		if raw, merr := json.Marshal(stats); merr == nil {
			c.client.Set(ctx, key, raw, c.ttl)
		}
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return value.(Stats), nil
}

// Invalidate drops the cached stats after a new sale lands.
func (c *StatsCache) Invalidate(ctx context.Context, accountID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, statsKey(accountID))
}
