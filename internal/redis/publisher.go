package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher writes relay envelopes onto instance and broadcast channels.
// Publish failures are non-fatal to the chat path; callers log and move on.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}
