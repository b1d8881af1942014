// Package events delivers booking lifecycle events to listeners outside the
// process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/session-scheduler/internal/application"
)

// DefaultChannel is the pub/sub channel events are published on when none is configured.
const DefaultChannel = "scheduler.events"

// RedisOptions configures the Redis connection used for events.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// PubSubClient is the part of *redis.Client the publisher needs.
type PubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each event as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  PubSubClient
	channel string
}

var _ application.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher publishes on channel, or DefaultChannel when it is empty.
func NewRedisPublisher(client PubSubClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements application.EventPublisher.
func (p *RedisPublisher) Publish(ctx context.Context, event application.Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
