package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Presence is a best-effort routing hint: which instance currently holds a
// live connection for the user. Never authoritative for correctness.
type Presence struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	LastSeen   time.Time `json:"last_seen"`
}

// PresenceStore keeps presence records and per-user connection counts in
// the shared backend. Online records expire after a short TTL unless
// heartbeat-refreshed; offline records are retained longer for last-seen
// display.
type PresenceStore struct {
	client     *goredis.Client
	onlineTTL  time.Duration
	offlineTTL time.Duration
}

func NewPresenceStore(client *goredis.Client, onlineTTL, offlineTTL time.Duration) *PresenceStore {
	if onlineTTL == 0 {
		onlineTTL = time.Minute
	}
	if offlineTTL == 0 {
		offlineTTL = 24 * time.Hour
	}
	return &PresenceStore{client: client, onlineTTL: onlineTTL, offlineTTL: offlineTTL}
}

func presenceKey(userID string) string {
	return "presence:user:" + userID
}

func connectionsKey(userID string) string {
	return "presence:connections:" + userID
}

// unregisterScript removes one connection and, when it was the last, writes
// the offline record in the same atomic step. Removal and the "is this now
// empty" check must not be two separate round trips.
var unregisterScript = goredis.NewScript(`
	local connsKey = KEYS[1]
	local presKey = KEYS[2]
	redis.call('HDEL', connsKey, ARGV[1])
	local remaining = redis.call('HLEN', connsKey)
	if remaining == 0 then
		redis.call('DEL', connsKey)
		redis.call('SET', presKey, ARGV[2], 'EX', tonumber(ARGV[3]))
	end
	return remaining
`)

// RegisterConnection records a live connection owned by this instance and
// marks the user online.
func (p *PresenceStore) RegisterConnection(ctx context.Context, userID, connID, instanceID string) error {
	record := Presence{
		UserID:     userID,
		Status:     StatusOnline,
		InstanceID: instanceID,
		LastSeen:   time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.HSet(ctx, connectionsKey(userID), connID, instanceID)
	pipe.Expire(ctx, connectionsKey(userID), p.onlineTTL)
	pipe.Set(ctx, presenceKey(userID), data, p.onlineTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// UnregisterConnection removes the connection. When it was the user's last
// one the offline record is written atomically; returns the number of
// connections left.
func (p *PresenceStore) UnregisterConnection(ctx context.Context, userID, connID string) (int64, error) {
	offline := Presence{
		UserID:   userID,
		Status:   StatusOffline,
		LastSeen: time.Now(),
	}
	data, err := json.Marshal(offline)
	if err != nil {
		return 0, err
	}

	remaining, err := unregisterScript.Run(ctx, p.client,
		[]string{connectionsKey(userID), presenceKey(userID)},
		connID, string(data), int(p.offlineTTL.Seconds()),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("presence unregister failed: %w", err)
	}
	return remaining, nil
}

// Heartbeat refreshes the TTLs without changing status.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID string) error {
	pipe := p.client.Pipeline()
	pipe.Expire(ctx, presenceKey(userID), p.onlineTTL)
	pipe.Expire(ctx, connectionsKey(userID), p.onlineTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the presence record, defaulting to offline when absent or
// expired.
func (p *PresenceStore) Get(ctx context.Context, userID string) (Presence, error) {
	data, err := p.client.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return Presence{UserID: userID, Status: StatusOffline}, nil
	}
	if err != nil {
		return Presence{}, err
	}

	var record Presence
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return Presence{}, err
	}
	return record, nil
}

// GetMany fetches presence for several users in one round trip.
func (p *PresenceStore) GetMany(ctx context.Context, userIDs []string) (map[string]Presence, error) {
	result := make(map[string]Presence, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	pipe := p.client.Pipeline()
	cmds := make(map[string]*goredis.StringCmd, len(userIDs))
	for _, userID := range userIDs {
		cmds[userID] = pipe.Get(ctx, presenceKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, err
	}

	for userID, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			result[userID] = Presence{UserID: userID, Status: StatusOffline}
			continue
		}
		var record Presence
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			result[userID] = Presence{UserID: userID, Status: StatusOffline}
			continue
		}
		result[userID] = record
	}
	return result, nil
}
