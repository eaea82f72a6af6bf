package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypingTracker keeps ephemeral typing indicators per conversation. Entries
// self-expire; nothing is ever persisted.
type TypingTracker struct {
	client *goredis.Client
}

const typingTTL = 10 * time.Second

func NewTypingTracker(client *goredis.Client) *TypingTracker {
	return &TypingTracker{client: client}
}

func typingKey(conversationID string) string {
	return fmt.Sprintf("typing:%s", conversationID)
}

func (t *TypingTracker) Set(ctx context.Context, conversationID, userID string, typing bool) error {
	key := typingKey(conversationID)
	if typing {
		pipe := t.client.Pipeline()
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, typingTTL)
		_, err := pipe.Exec(ctx)
		return err
	}
	return t.client.SRem(ctx, key, userID).Err()
}

func (t *TypingTracker) Users(ctx context.Context, conversationID string) ([]string, error) {
	return t.client.SMembers(ctx, typingKey(conversationID)).Result()
}
