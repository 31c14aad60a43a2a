package sink

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisSink_AppendAndRead(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()

	s := NewRedisSink(client, "plant:test:", time.Minute)
	defer s.Close()
	client.Del(ctx, s.Key("run-1"))

	require.NoError(t, s.LogEvent(ctx, partEvent(domain.ActionOrderGenerated, "Generating load order: [1, 0, 2, 5, 3]")))
	require.NoError(t, s.LogEvent(ctx, finishEvent()))

	events, err := s.Events(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "com.plantfloor.worker.order_generated", events[0].Type())
	assert.Equal(t, "com.plantfloor.run.finish", events[1].Type())

	ttl, err := client.TTL(ctx, s.Key("run-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	client.Del(ctx, s.Key("run-1"))
}

func TestRedisSink_NoTTL(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()

	s := NewRedisSink(client, "plant:test:", 0)
	defer s.Close()
	client.Del(ctx, s.Key("run-2"))

	ev := finishEvent()
	ev.RunID = "run-2"
	require.NoError(t, s.LogEvent(ctx, ev))

	ttl, err := client.TTL(ctx, s.Key("run-2")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "key without expiry")

	client.Del(ctx, s.Key("run-2"))
}

func TestRedisSink_DefaultPrefix(t *testing.T) {
	s := NewRedisSink(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", DefaultRedisTTL)
	defer s.Close()
	assert.Equal(t, "plant:events:abc", s.Key("abc"))
}

func TestRedisSink_SubSecondTTL(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()

	s := NewRedisSink(client, "plant:test:", 500*time.Millisecond)
	defer s.Close()
	client.Del(ctx, s.Key("run-3"))

	ev := finishEvent()
	ev.RunID = "run-3"
	require.NoError(t, s.LogEvent(ctx, ev))

	ttl, err := client.PTTL(ctx, s.Key("run-3")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 500*time.Millisecond)

	client.Del(ctx, s.Key("run-3"))
}

func TestTTLMillis(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Nanosecond, 1},
		{500 * time.Millisecond, 500},
		{1500 * time.Microsecond, 2},
		{24 * time.Hour, 86400000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ttlMillis(tt.ttl), tt.ttl.String())
	}
}
