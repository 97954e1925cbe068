// Package messaging provides the Redis Streams event producer.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"tender_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamRunCompleted           = "pipeline:run_completed"
	StreamRecommendationDispatch = "pipeline:recommendation_dispatched"
)

// RedisProducer implements out.EventPublisher using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishRunCompleted publishes a run completed event.
func (p *RedisProducer) PublishRunCompleted(ctx context.Context, event *out.RunCompletedEvent) error {
	return p.publish(ctx, StreamRunCompleted, event)
}

// PublishRecommendationDispatched publishes a dispatch event.
func (p *RedisProducer) PublishRecommendationDispatched(ctx context.Context, event *out.RecommendationDispatchedEvent) error {
	return p.publish(ctx, StreamRecommendationDispatch, event)
}

func (p *RedisProducer) publish(ctx context.Context, stream string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.EventPublisher
var _ out.EventPublisher = (*RedisProducer)(nil)
