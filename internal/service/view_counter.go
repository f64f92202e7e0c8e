package service

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/redis"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

const (
	viewKeyPrefix = "events:views:"
	viewDirtyKey  = "events:views:dirty"

	drainScriptName = "drain_views"
	// KEYS[1] dirty set, ARGV[1] batch size, ARGV[2] key prefix.
	// Returns a flat list of id, count pairs.
	drainScript = `
local ids = redis.call('SPOP', KEYS[1], tonumber(ARGV[1]))
local out = {}
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  local v = redis.call('GET', key)
  if v then
    redis.call('DEL', key)
    table.insert(out, id)
    table.insert(out, v)
  end
end
return out
`
)

// ViewCounter records one view of an event's detail page
type ViewCounter interface {
	RecordView(ctx context.Context, eventID string) error
}

// DirectViewCounter bumps view_count with one atomic UPDATE per view
type DirectViewCounter struct {
	events repository.EventRepository
}

// NewDirectViewCounter creates a new DirectViewCounter
func NewDirectViewCounter(events repository.EventRepository) *DirectViewCounter {
	return &DirectViewCounter{events: events}
}

// RecordView increments view_count by one
func (c *DirectViewCounter) RecordView(ctx context.Context, eventID string) error {
	return c.events.IncrementViewCount(ctx, eventID, 1)
}

// RedisViewBuffer accumulates views in Redis for the flush worker to apply in batches
type RedisViewBuffer struct {
	client   *redis.Client
	buffered *telemetry.Counter
}

// NewRedisViewBuffer creates a buffer and loads the drain script
func NewRedisViewBuffer(ctx context.Context, client *redis.Client) (*RedisViewBuffer, error) {
	if _, err := client.LoadScript(ctx, drainScriptName, drainScript); err != nil {
		return nil, err
	}
	buffered, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "event_views_buffered_total",
		Description: "Event views buffered in Redis",
		Unit:        "1",
	})
	if err != nil {
		return nil, err
	}
	return &RedisViewBuffer{client: client, buffered: buffered}, nil
}

func viewKey(eventID string) string {
	return viewKeyPrefix + eventID
}

// RecordView increments the pending count and marks the event dirty
func (b *RedisViewBuffer) RecordView(ctx context.Context, eventID string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, viewKey(eventID))
		pipe.SAdd(ctx, viewDirtyKey, eventID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("buffer view: %w", err)
	}
	b.buffered.Inc(ctx, telemetry.EventIDAttr(eventID))
	return nil
}

// Drain atomically takes up to batchSize pending counts out of Redis
func (b *RedisViewBuffer) Drain(ctx context.Context, batchSize int) (map[string]int64, error) {
	res, err := b.client.EvalShaByName(ctx, drainScriptName, []string{viewDirtyKey}, batchSize, viewKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("drain views: %w", err)
	}

	items, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("drain views: unexpected result %T", res)
	}

	pending := make(map[string]int64, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		id, _ := items[i].(string)
		raw, _ := items[i+1].(string)
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id == "" {
			continue
		}
		pending[id] += n
	}
	return pending, nil
}

// Restore puts a count back after a failed database write
func (b *RedisViewBuffer) Restore(ctx context.Context, eventID string, delta int64) error {
	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.IncrBy(ctx, viewKey(eventID), delta)
		pipe.SAdd(ctx, viewDirtyKey, eventID)
		return nil
	})
	return err
}

// Pending returns how many events have unflushed views
func (b *RedisViewBuffer) Pending(ctx context.Context) (int64, error) {
	return b.client.SCard(ctx, viewDirtyKey).Result()
}
