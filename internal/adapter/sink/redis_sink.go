package sink

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

const (
	DefaultRedisKeyPrefix = "plant:events:"
	DefaultRedisTTL       = 24 * time.Hour
)

// appendEventScript pushes one event and refreshes the list TTL atomically so a
// run's log never outlives its TTL.
var appendEventScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[2])

local length = redis.call('RPUSH', key, ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', key, ttl)
end

return length
`)

// RedisSink keeps a transient per-run event log as a Redis list of CloudEvents.
// It owns the client and closes it on Close.
type RedisSink struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisSink(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSink {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisSink{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *RedisSink) Key(runID string) string {
	return r.keyPrefix + runID
}

func (r *RedisSink) LogEvent(ctx context.Context, ev domain.Event) error {
	ce, err := ToCloudEvent(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("marshal cloudevent: %w", err)
	}

	if err := appendEventScript.Run(ctx, r.client, []string{r.Key(ev.RunID)}, payload, ttlMillis(r.ttl)).Err(); err != nil {
		return fmt.Errorf("append event to redis: %w", err)
	}
	return nil
}

// ttlMillis rounds up, so a positive TTL below a millisecond still expires.
func ttlMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}

// Events reads back the log of one run in write order.
func (r *RedisSink) Events(ctx context.Context, runID string) ([]cloudevents.Event, error) {
	raw, err := r.client.LRange(ctx, r.Key(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read events from redis: %w", err)
	}

	events := make([]cloudevents.Event, 0, len(raw))
	for _, item := range raw {
		var ce cloudevents.Event
		if err := json.Unmarshal([]byte(item), &ce); err != nil {
			return nil, fmt.Errorf("unmarshal cloudevent: %w", err)
		}
		events = append(events, ce)
	}
	return events, nil
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
