package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"taskchat/internal/events"
	"taskchat/internal/redis"
	"taskchat/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{frames: make(map[string][][]byte)}
}

func (e *recordingEmitter) Emit(room string, frame []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames[room] = append(e.frames[room], append([]byte(nil), frame...))
}

func (e *recordingEmitter) count(room string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames[room])
}

func (e *recordingEmitter) first(room string) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.frames[room]) == 0 {
		return nil
	}
	return e.frames[room][0]
}

type testNode struct {
	relay   *Relay
	emitter *recordingEmitter
}

func startNode(t *testing.T, addr, instanceID string, presence *redis.PresenceStore) *testNode {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	emitter := newRecordingEmitter()
	r := New(instanceID,
		redis.NewPublisher(client),
		redis.NewSubscriber(client),
		presence, emitter, logger.Nop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = r.Run(ctx) }()

	// Wait for the subscriptions to land before the test publishes.
	waitForSubscribers(t, client, instanceChannel(instanceID))

	return &testNode{relay: r, emitter: emitter}
}

func waitForSubscribers(t *testing.T, client *goredis.Client, channel string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := client.PubSubNumSub(context.Background(), channel).Result()
		if err == nil && counts[channel] > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no subscriber on %s", channel)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRelay_RoomEventReachesOtherInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	presenceClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	presence := redis.NewPresenceStore(presenceClient, time.Minute, time.Hour)

	a := startNode(t, mr.Addr(), "instance-a", presence)
	b := startNode(t, mr.Addr(), "instance-b", presence)

	room := events.ConversationRoom(uuid.New())
	payload := map[string]string{"body": "hello"}
	require.NoError(t, a.relay.PublishToRoom(context.Background(), events.EventMessage, room, payload))

	waitFor(t, func() bool { return b.emitter.count(room) == 1 })

	var frame events.Frame
	require.NoError(t, json.Unmarshal(b.emitter.first(room), &frame))
	assert.Equal(t, events.EventMessage, frame.Event)

	var got map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &got))
	assert.Equal(t, "hello", got["body"])

	// The origin already emitted locally; its relay listener must not
	// double-deliver.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, a.emitter.count(room))
}

func TestRelay_UserEventRoutedToOwningInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	presenceClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	presence := redis.NewPresenceStore(presenceClient, time.Minute, time.Hour)

	a := startNode(t, mr.Addr(), "instance-a", presence)
	b := startNode(t, mr.Addr(), "instance-b", presence)

	userID := uuid.New()
	require.NoError(t, presence.RegisterConnection(context.Background(), userID.String(), "conn-1", "instance-b"))

	payload := events.ReadPayload{UserID: userID, LastReadSeq: 7}
	require.NoError(t, a.relay.PublishToUser(context.Background(), events.EventReadSync, userID, payload))

	room := events.UserRoom(userID)
	waitFor(t, func() bool { return b.emitter.count(room) == 1 })
	assert.Zero(t, a.emitter.count(room))
}

func TestRelay_UserEventSkippedWhenLocalOrOffline(t *testing.T) {
	mr := miniredis.RunT(t)
	presenceClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	presence := redis.NewPresenceStore(presenceClient, time.Minute, time.Hour)

	a := startNode(t, mr.Addr(), "instance-a", presence)
	b := startNode(t, mr.Addr(), "instance-b", presence)

	local := uuid.New()
	require.NoError(t, presence.RegisterConnection(context.Background(), local.String(), "conn-1", "instance-a"))
	require.NoError(t, a.relay.PublishToUser(context.Background(), events.EventReadSync, local, nil))

	offline := uuid.New()
	require.NoError(t, a.relay.PublishToUser(context.Background(), events.EventReadSync, offline, nil))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, b.emitter.count(events.UserRoom(local)))
	assert.Zero(t, b.emitter.count(events.UserRoom(offline)))
}

func TestRelay_MalformedEnvelopeIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	presenceClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	presence := redis.NewPresenceStore(presenceClient, time.Minute, time.Hour)

	b := startNode(t, mr.Addr(), "instance-b", presence)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Publish(context.Background(), "relay:global", "not json").Err())

	room := events.ConversationRoom(uuid.New())
	payload := map[string]string{"body": "still works"}
	pub := redis.NewPublisher(client)
	env, err := json.Marshal(Envelope{Event: events.EventMessage, Room: room, Payload: mustJSON(payload), Origin: "instance-a"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), "relay:global", env))

	waitFor(t, func() bool { return b.emitter.count(room) == 1 })
}

func mustJSON(v interface{}) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
