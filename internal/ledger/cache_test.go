package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *StatsCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute)
}

func TestStatsCacheFetchPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	accountID := uuid.New()

	loads := 0
	loader := func(ctx context.Context) (Stats, error) {
		loads++
		return Stats{TotalSales: 7, TotalUnitsSold: 21}, nil
	}

	first, err := cache.Fetch(context.Background(), accountID, loader)
	require.NoError(t, err)
	require.Equal(t, 7, first.TotalSales)

	second, err := cache.Fetch(context.Background(), accountID, loader)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, loads)
}

func TestStatsCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	accountID := uuid.New()

	loads := 0
	loader := func(ctx context.Context) (Stats, error) {
		loads++
		return Stats{TotalSales: loads}, nil
	}

	_, err := cache.Fetch(context.Background(), accountID, loader)
	require.NoError(t, err)

	cache.Invalidate(context.Background(), accountID)

	stats, err := cache.Fetch(context.Background(), accountID, loader)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalSales)
}

func TestStatsCacheLoaderErrorPropagates(t *testing.T) {
	cache := newTestCache(t)

	boom := errors.New("db down")
	_, err := cache.Fetch(context.Background(), uuid.New(), func(ctx context.Context) (Stats, error) {
		return Stats{}, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestNilStatsCacheDegradesToLoader(t *testing.T) {
	var cache *StatsCache

	stats, err := cache.Fetch(context.Background(), uuid.New(), func(ctx context.Context) (Stats, error) {
		return Stats{TotalSales: 3}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalSales)

	cache.Invalidate(context.Background(), uuid.New())
}
