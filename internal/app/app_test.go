package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candrive/internal/config"
	"candrive/internal/metrics"
	"candrive/internal/queue"
)

func testConfig(name string) config.App {
	return config.App{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		QueueBackend:   "memory",
		DayTimezone:    "America/New_York",
		DayResetHour:   3,
		CacheTTL:       time.Second,
	}
}

func TestOpenInMemory(t *testing.T) {
	a, err := Open(context.Background(), testConfig("app_memory"))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.True(t, a.InProcessQueue())
	require.NoError(t, a.Service.Bootstrap(context.Background(), "", "", ""))
	_, err = a.Service.CurrentEvent(context.Background())
	assert.NoError(t, err)
}

func TestLeaderboardWithoutRedisSkipsCacheMetrics(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig("app_nocache"))
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Service.Bootstrap(ctx, "", "", ""))
	evt, err := a.Service.CurrentEvent(ctx)
	require.NoError(t, err)

	miss := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss"))
	hit := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))
	_, err = a.Service.GetLeaderboard(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, miss, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, hit, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
}

func TestOpenWithRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("app_redis")
	cfg.RedisAddr = mr.Addr()
	cfg.QueueBackend = "redis"

	a, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.InProcessQueue())
	_, ok := a.Queue.(*queue.RedisQueue)
	assert.True(t, ok)
}

func TestServiceOptionsTimezoneFallback(t *testing.T) {
	cfg := testConfig("unused")
	cfg.DayTimezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, ServiceOptions(cfg).Location)

	cfg.DayTimezone = "America/New_York"
	assert.Equal(t, "America/New_York", ServiceOptions(cfg).Location.String())
}
