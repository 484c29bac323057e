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

func newTestCache(t *testing.T) (*RedisSeenCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSeenCacheWithClient(client, time.Minute, "test:"), mr
}

func TestRedisSeenCache_MarkThenSeen(t *testing.T) {
	// Arrange
	c, mr := newTestCache(t)
	ctx := context.Background()

	// Act
	before, err := c.Seen(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, c.MarkSeen(ctx, "evt_1"))
	after, err := c.Seen(ctx, "evt_1")
	require.NoError(t, err)

	// Assert
	assert.False(t, before)
	assert.True(t, after)
	assert.True(t, mr.Exists("test:evt_1"))
	assert.Equal(t, time.Minute, mr.TTL("test:evt_1"))
}

func TestRedisSeenCache_Expires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "evt_2"))
	mr.FastForward(2 * time.Minute)

	seen, err := c.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisSeenCache_ServerDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Seen(context.Background(), "evt_3")
	assert.Error(t, err)
	assert.Error(t, c.MarkSeen(context.Background(), "evt_3"))
}

func TestNewRedisSeenCache_PingFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisSeenCache(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNoopSeenCache(t *testing.T) {
	var c NoopSeenCache
	seen, err := c.Seen(context.Background(), "x")
	assert.NoError(t, err)
	assert.False(t, seen)
	assert.NoError(t, c.MarkSeen(context.Background(), "x"))
}
