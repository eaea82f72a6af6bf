package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"taskchat/internal/auth"
	"taskchat/internal/events"
	"taskchat/internal/redis"
	"taskchat/internal/repository"
	taskerrors "taskchat/pkg/errors"
	"taskchat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventSink receives the client-originated events that need service-side
// handling. Satisfied by services.ChatService.
type EventSink interface {
	SetTyping(ctx context.Context, userID, conversationID uuid.UUID, typing bool) error
	MarkDelivered(ctx context.Context, userID, messageID uuid.UUID) error
}

type Handler struct {
	tokens           *auth.TokenManager
	hub              *Hub
	authorizer       *RoomAuthorizer
	presence         *redis.PresenceStore
	sink             EventSink
	conversationRepo repository.ConversationRepository
	instanceID       string
	log              *logger.Logger
}

func NewHandler(
	tokens *auth.TokenManager,
	hub *Hub,
	authorizer *RoomAuthorizer,
	presence *redis.PresenceStore,
	sink EventSink,
	conversationRepo repository.ConversationRepository,
	instanceID string,
	log *logger.Logger,
) *Handler {
	return &Handler{
		tokens:           tokens,
		hub:              hub,
		authorizer:       authorizer,
		presence:         presence,
		sink:             sink,
		conversationRepo: conversationRepo,
		instanceID:       instanceID,
		log:              log,
	}
}

type joinPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type deliveredPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Connect upgrades the HTTP request, authenticates it, auto-joins the
// user's rooms and pumps inbound events until the socket drops.
func (h *Handler) Connect(c *gin.Context) {
	claims, err := h.tokens.ParseAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": taskerrors.Code(taskerrors.ErrUnauthorized)})
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": taskerrors.Code(taskerrors.ErrUnauthorized)})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	client.SetState(StateAuthenticated)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if err := h.presence.RegisterConnection(ctx, userID.String(), client.ID, h.instanceID); err != nil {
		h.log.Errorf("ws: presence register failed for %s: %v", userID, err)
	}
	h.autoJoin(ctx, client)
	client.SetState(StateActive)

	h.readLoop(ctx, client)

	h.hub.Unregister(client)
	client.SetState(StateDisconnected)
	remaining, err := h.presence.UnregisterConnection(context.Background(), userID.String(), client.ID)
	if err != nil {
		h.log.Errorf("ws: presence unregister failed for %s: %v", userID, err)
	} else if remaining == 0 {
		h.log.Infof("ws: user %s offline", userID)
	}
}

// autoJoin puts the connection into its personal room and every
// conversation the user collaborates on.
func (h *Handler) autoJoin(ctx context.Context, client *Client) {
	h.hub.Join(client, events.UserRoom(client.UserID))

	conversationIDs, err := h.conversationRepo.ListUserConversationIDs(ctx, client.UserID)
	if err != nil {
		h.log.Errorf("ws: auto-join lookup failed for %s: %v", client.UserID, err)
		return
	}
	for _, id := range conversationIDs {
		h.hub.Join(client, events.ConversationRoom(id))
	}
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame events.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(client, taskerrors.ErrBadRequest, "malformed frame")
			continue
		}
		h.dispatch(ctx, client, frame)
	}
}

func (h *Handler) dispatch(ctx context.Context, client *Client, frame events.Frame) {
	switch frame.Event {
	case events.EventJoin:
		var p joinPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			h.sendError(client, taskerrors.ErrBadRequest, "join requires conversation_id")
			return
		}
		ok, err := h.authorizer.CanJoin(ctx, client.UserID, p.ConversationID)
		if err != nil {
			h.sendError(client, taskerrors.ErrInternal, "join failed")
			return
		}
		if !ok {
			h.sendError(client, taskerrors.ErrForbidden, "not a collaborator")
			return
		}
		h.hub.Join(client, events.ConversationRoom(p.ConversationID))

	case events.EventLeave:
		var p joinPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			h.sendError(client, taskerrors.ErrBadRequest, "leave requires conversation_id")
			return
		}
		h.hub.Leave(client, events.ConversationRoom(p.ConversationID))

	case events.EventTyping, events.EventStopTyping:
		var p joinPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			h.sendError(client, taskerrors.ErrBadRequest, "typing requires conversation_id")
			return
		}
		typing := frame.Event == events.EventTyping
		if err := h.sink.SetTyping(ctx, client.UserID, p.ConversationID, typing); err != nil {
			h.sendError(client, err, "typing update failed")
		}

	case events.EventDelivered:
		var p deliveredPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.MessageID == uuid.Nil {
			h.sendError(client, taskerrors.ErrBadRequest, "delivered requires message_id")
			return
		}
		if err := h.sink.MarkDelivered(ctx, client.UserID, p.MessageID); err != nil {
			h.sendError(client, err, "delivery ack failed")
		}

	case events.EventHeartbeat:
		if err := h.presence.Heartbeat(ctx, client.UserID.String()); err != nil {
			h.log.Errorf("ws: heartbeat failed for %s: %v", client.UserID, err)
		}

	default:
		h.sendError(client, taskerrors.ErrBadRequest, "unknown event "+frame.Event)
	}
}

func (h *Handler) sendError(client *Client, err error, message string) {
	frame, encErr := events.Encode(events.EventError, errorPayload{
		Code:    taskerrors.Code(err),
		Message: message,
	})
	if encErr != nil {
		return
	}
	client.SendMessage(frame)
}
