package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_RejectsSixthInWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, RateLimitConfig{WindowSeconds: 2, MaxMessages: 5})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := limiter.AllowMessage(ctx, "sender-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "send %d should pass", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res, err := limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "sixth send in the window must be rejected")
	assert.Equal(t, 0, res.Remaining)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, RateLimitConfig{WindowSeconds: 2, MaxMessages: 5})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := limiter.AllowMessage(ctx, "sender-1")
		require.NoError(t, err)
	}

	mr.FastForward(3 * time.Second)

	res, err := limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "sends succeed again after the window elapses")
}

func TestRateLimiter_PerUserBudgets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, RateLimitConfig{WindowSeconds: 2, MaxMessages: 1})
	ctx := context.Background()

	res, err := limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.AllowMessage(ctx, "sender-2")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "another sender has its own budget")
}

func TestRateLimiter_Reset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, RateLimitConfig{WindowSeconds: 60, MaxMessages: 1})
	ctx := context.Background()

	_, err := limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	res, err := limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, limiter.Reset(ctx, "sender-1"))

	res, err = limiter.AllowMessage(ctx, "sender-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
