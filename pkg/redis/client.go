// Package redis is a thin publish/subscribe wrapper around go-redis,
// trimmed down from the teacher's hash-state-sync client to the
// subset the P3 bridge actually needs: P3 has no hash/state concept to
// mirror, only wiretap/dead-letter traffic to republish.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client with the publish/subscribe surface
// pkg/bridge needs.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// New creates a Client and verifies connectivity with a PING.
func New(addr string, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Client{
		client: client,
		ctx:    ctx,
	}, nil
}

// Publish publishes message on a Redis channel.
func (c *Client) Publish(channel string, message []byte) error {
	return c.client.Publish(c.ctx, channel, message).Err()
}

// Subscribe subscribes to a Redis channel and returns a channel for
// incoming messages, plus a cleanup function to unsubscribe.
func (c *Client) Subscribe(channel string) (<-chan *redis.Message, func()) {
	pubsub := c.client.Subscribe(c.ctx, channel)
	ch := pubsub.Channel()
	return ch, func() { pubsub.Close() }
}

// Close closes the underlying Redis client connection.
func (c *Client) Close() error {
	return c.client.Close()
}
