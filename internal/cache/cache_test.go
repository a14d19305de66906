package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestRedisGetSet(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "candrive:lb:e1:full")
	assert.False(t, ok)

	c.Set(ctx, "candrive:lb:e1:full", []byte(`{"total_cans":3}`), 10*time.Second)
	got, ok := c.Get(ctx, "candrive:lb:e1:full")
	require.True(t, ok)
	assert.JSONEq(t, `{"total_cans":3}`, string(got))

	mr.FastForward(11 * time.Second)
	_, ok = c.Get(ctx, "candrive:lb:e1:full")
	assert.False(t, ok)
}

func TestRedisDeletePrefix(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()

	c.Set(ctx, "candrive:lb:e1:full", []byte("a"), time.Minute)
	c.Set(ctx, "candrive:lb:e1:daily:2026-10-14", []byte("b"), time.Minute)
	c.Set(ctx, "candrive:lb:e2:full", []byte("c"), time.Minute)

	c.DeletePrefix(ctx, "candrive:lb:e1:")

	assert.False(t, mr.Exists("candrive:lb:e1:full"))
	assert.False(t, mr.Exists("candrive:lb:e1:daily:2026-10-14"))
	assert.True(t, mr.Exists("candrive:lb:e2:full"))
}

func TestRedisDownIsAMiss(t *testing.T) {
	c, mr := newRedis(t)
	mr.Close()
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
