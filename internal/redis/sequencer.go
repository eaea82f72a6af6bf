package redis

import (
	"context"
	"errors"
	"fmt"

	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Sequencer issues strictly increasing per-conversation sequence numbers
// from the shared backend. There is deliberately no local fallback: two
// processes counting independently would hand out duplicate sequence
// numbers, so an unreachable backend fails the send instead.
type Sequencer struct {
	client *goredis.Client
}

func NewSequencer(client *goredis.Client) *Sequencer {
	return &Sequencer{client: client}
}

func seqKey(conversationID uuid.UUID) string {
	return fmt.Sprintf("seq:conversation:%s", conversationID)
}

// Next atomically increments and returns the conversation counter.
// The first call for a conversation returns 1.
func (s *Sequencer) Next(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	seq, err := s.client.Incr(ctx, seqKey(conversationID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: sequence allocation failed: %v", taskerrors.ErrInternal, err)
	}
	return seq, nil
}

// Current returns the highest sequence issued so far, 0 when none.
func (s *Sequencer) Current(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	seq, err := s.client.Get(ctx, seqKey(conversationID)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: sequence read failed: %v", taskerrors.ErrInternal, err)
	}
	return seq, nil
}
