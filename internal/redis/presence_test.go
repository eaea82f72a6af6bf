package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresenceStore(t *testing.T) (*PresenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewPresenceStore(client, 60*time.Second, 24*time.Hour), mr
}

func TestPresence_RegisterMarksOnline(t *testing.T) {
	store, _ := newPresenceStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-a", "instance-1"))

	record, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, record.Status)
	assert.Equal(t, "instance-1", record.InstanceID)
}

func TestPresence_UnknownUserIsOffline(t *testing.T) {
	store, _ := newPresenceStore(t)

	record, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, record.Status)
}

func TestPresence_LastConnectionFlipsOffline(t *testing.T) {
	store, _ := newPresenceStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-a", "instance-1"))
	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-b", "instance-1"))

	remaining, err := store.UnregisterConnection(ctx, "user-1", "conn-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	record, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, record.Status, "still one live connection")

	remaining, err = store.UnregisterConnection(ctx, "user-1", "conn-b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	record, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, record.Status, "last removal writes offline")
}

func TestPresence_ConcurrentUnregisterSingleOfflineWrite(t *testing.T) {
	store, _ := newPresenceStore(t)
	ctx := context.Background()

	const conns = 20
	for i := 0; i < conns; i++ {
		require.NoError(t, store.RegisterConnection(ctx, "user-1", connName(i), "instance-1"))
	}

	var wg sync.WaitGroup
	zeroes := make(chan int64, conns)
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			remaining, err := store.UnregisterConnection(ctx, "user-1", connName(i))
			require.NoError(t, err)
			zeroes <- remaining
		}(i)
	}
	wg.Wait()
	close(zeroes)

	sawZero := 0
	for r := range zeroes {
		if r == 0 {
			sawZero++
		}
	}
	assert.Equal(t, 1, sawZero, "exactly one removal observes the empty set")

	record, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, record.Status)
}

func TestPresence_OnlineRecordExpiresWithoutHeartbeat(t *testing.T) {
	store, mr := newPresenceStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-a", "instance-1"))
	mr.FastForward(61 * time.Second)

	record, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, record.Status)
}

func TestPresence_HeartbeatKeepsOnline(t *testing.T) {
	store, mr := newPresenceStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-a", "instance-1"))
	mr.FastForward(40 * time.Second)
	require.NoError(t, store.Heartbeat(ctx, "user-1"))
	mr.FastForward(40 * time.Second)

	record, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, record.Status)
}

func TestPresence_GetMany(t *testing.T) {
	store, _ := newPresenceStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterConnection(ctx, "user-1", "conn-a", "instance-1"))

	records, err := store.GetMany(ctx, []string{"user-1", "user-2"})
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, records["user-1"].Status)
	assert.Equal(t, StatusOffline, records["user-2"].Status)
}

func TestTypingTracker_SetAndClear(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	tracker := NewTypingTracker(client)
	ctx := context.Background()

	require.NoError(t, tracker.Set(ctx, "conv-1", "user-1", true))
	users, err := tracker.Users(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, users)

	require.NoError(t, tracker.Set(ctx, "conv-1", "user-1", false))
	users, err = tracker.Users(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestTypingTracker_EntriesExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	tracker := NewTypingTracker(client)
	ctx := context.Background()

	require.NoError(t, tracker.Set(ctx, "conv-1", "user-1", true))
	mr.FastForward(11 * time.Second)

	users, err := tracker.Users(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func connName(i int) string {
	return "conn-" + string(rune('a'+i))
}
