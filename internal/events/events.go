package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Wire event names, as seen by connected clients.
const (
	// server -> client
	EventMessage        = "chat:message"
	EventMessageUpdate  = "chat:message_update"
	EventMessageDelete  = "chat:message_delete"
	EventReactionUpdate = "chat:reaction_update"
	EventPinUpdate      = "chat:pin_update"
	EventRead           = "chat:read"
	EventReadSync       = "chat:read_sync"
	EventNewAlert       = "chat:new_message_alert"
	EventDelivered      = "chat:delivered"
	EventTyping         = "chat:typing"
	EventStopTyping     = "chat:stop_typing"
	EventError          = "chat:error"

	// client -> server (typing/delivered are bidirectional)
	EventJoin      = "chat:join"
	EventLeave     = "chat:leave"
	EventHeartbeat = "presence:heartbeat"
)

// Room naming. A connection sits in its personal room plus one room per
// joined conversation.
func ConversationRoom(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}

func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Frame is the unit written to a socket: event name plus payload.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals a frame for the write pump. Payload marshal failures are
// programming errors surfaced to the caller.
func Encode(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}

// Payloads for the non-message events.

type ReadPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	LastReadSeq    int64     `json:"last_read_seq"`
	ReadAt         time.Time `json:"read_at"`
}

type DeliveredPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

type ReactionPayload struct {
	MessageID      uuid.UUID  `json:"message_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Reactions      []Reaction `json:"reactions"`
}

type Reaction struct {
	UserID uuid.UUID `json:"user_id"`
	Emoji  string    `json:"emoji"`
}

type DeletePayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

type PinPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Pinned         bool      `json:"pinned"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Typing         bool      `json:"typing"`
}

// AlertPayload is the badge/alert preview fanned out to personal rooms of
// recipients who are not viewing the conversation.
type AlertPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Kind           string    `json:"kind"`
	Preview        string    `json:"preview,omitempty"`
	Seq            int64     `json:"seq"`
}
