// Package events publishes submission state transitions to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// DefaultStream is used when no stream name is configured.
const DefaultStream = "polycode:events"

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher implements domain.EventPublisher with XADD.
type RedisPublisher struct {
	client streamAdder
	stream string
	maxLen int64
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return newPublisher(client, stream)
}

func newPublisher(client streamAdder, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *RedisPublisher) Publish(ctx context.Context, tenant string, id domain.SubmissionID, ev domain.Event) error {
	payload, _ := json.Marshal(ev)
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"tenant_id":     tenant,
			"submission_id": string(id),
			"state":         string(ev.State),
			"attempt":       ev.Attempt,
			"kind":          string(ev.Kind),
			"at":            ev.At.UTC().Format(time.RFC3339Nano),
			"payload":       string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
