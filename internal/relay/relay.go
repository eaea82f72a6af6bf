package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"taskchat/internal/events"
	"taskchat/internal/redis"
	"taskchat/pkg/logger"

	"github.com/google/uuid"
)

// Envelope carries enough payload to reconstruct an emit on another
// process: event name, target room, and the already-marshaled payload.
type Envelope struct {
	Event   string          `json:"event"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
	Origin  string          `json:"origin"`
}

// LocalEmitter is the piece of the connection manager the relay re-emits
// into; satisfied by ws.Hub.
type LocalEmitter interface {
	Emit(room string, frame []byte)
}

const globalChannel = "relay:global"

func instanceChannel(instanceID string) string {
	return "relay:instance:" + instanceID
}

// Relay bridges events between server processes that do not share memory.
// Every process subscribes to its own instance channel plus the global
// broadcast channel; received envelopes are re-emitted to the local hub
// exactly as if they had originated locally.
type Relay struct {
	instanceID string
	publisher  *redis.Publisher
	subscriber *redis.Subscriber
	presence   *redis.PresenceStore
	hub        LocalEmitter
	log        *logger.Logger
}

func New(instanceID string, publisher *redis.Publisher, subscriber *redis.Subscriber, presence *redis.PresenceStore, hub LocalEmitter, log *logger.Logger) *Relay {
	return &Relay{
		instanceID: instanceID,
		publisher:  publisher,
		subscriber: subscriber,
		presence:   presence,
		hub:        hub,
		log:        log,
	}
}

func (r *Relay) InstanceID() string {
	return r.instanceID
}

// Run blocks consuming relay traffic until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	channels := []string{instanceChannel(r.instanceID), globalChannel}
	return r.subscriber.Subscribe(ctx, channels, r.handle)
}

func (r *Relay) handle(channel string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Errorf("relay: dropping malformed envelope on %s: %v", channel, err)
		return
	}
	// The originating process already emitted to its local rooms.
	if env.Origin == r.instanceID {
		return
	}

	frame, err := json.Marshal(events.Frame{Event: env.Event, Payload: env.Payload})
	if err != nil {
		r.log.Errorf("relay: re-encode failed: %v", err)
		return
	}
	r.hub.Emit(env.Room, frame)
}

// PublishToRoom fans an event out to the room's members on every other
// instance via the global channel.
func (r *Relay) PublishToRoom(ctx context.Context, event, room string, payload interface{}) error {
	return r.publish(ctx, globalChannel, event, room, payload)
}

// PublishToUser routes an event to the instance currently holding the
// user's connections, per the presence hint. No-op when the user is local
// to this instance or has no known owner.
func (r *Relay) PublishToUser(ctx context.Context, event string, userID uuid.UUID, payload interface{}) error {
	record, err := r.presence.Get(ctx, userID.String())
	if err != nil {
		return fmt.Errorf("relay: presence lookup: %w", err)
	}
	if record.Status != redis.StatusOnline || record.InstanceID == "" || record.InstanceID == r.instanceID {
		return nil
	}
	return r.publish(ctx, instanceChannel(record.InstanceID), event, events.UserRoom(userID), payload)
}

func (r *Relay) publish(ctx context.Context, channel, event, room string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Envelope{
		Event:   event,
		Room:    room,
		Payload: raw,
		Origin:  r.instanceID,
	})
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, channel, data)
}
