package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// releaseEnvelope is the wire shape the downstream message-bus
// collaborator expects.
type releaseEnvelope struct {
	Topic string              `json:"topic"`
	Data  releaseEnvelopeData `json:"data"`
}

type releaseEnvelopeData struct {
	ObjectID string `json:"object_id"`
}

const releaseTopic = "ezekiel.lock.release"

// Redis mirrors lock releases onto a Redis pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis builds a Redis-backed relay. addr is a host:port; channel
// defaults to "ezekiel.lock.release" when empty.
func NewRedis(addr, channel string) *Redis {
	if channel == "" {
		channel = releaseTopic
	}
	return &Redis{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// newRedisWithClient lets tests inject a client pointed at miniredis.
func newRedisWithClient(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = releaseTopic
	}
	return &Redis{client: client, channel: channel}
}

// Publish implements locks.Relay.
func (r *Redis) Publish(ctx context.Context, objectID string) error {
	payload, err := json.Marshal(releaseEnvelope{
		Topic: releaseTopic,
		Data:  releaseEnvelopeData{ObjectID: objectID},
	})
	if err != nil {
		return fmt.Errorf("relay: marshal release envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("relay: publish to %q: %w", r.channel, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
