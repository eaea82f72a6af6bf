package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskchat/internal/domain/chat"
	"taskchat/internal/domain/conversation"
	"taskchat/internal/events"
	"taskchat/internal/proxy"
	"taskchat/internal/redis"
	"taskchat/internal/repository"
	"taskchat/pkg/crypto"
	taskerrors "taskchat/pkg/errors"
	"taskchat/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	searchScanLimit     = 500
	backgroundTimeout   = 15 * time.Second
)

// deletedPlaceholder replaces tombstoned content. Stored encrypted like
// live content so the read path stays uniform.
const deletedPlaceholder = "message deleted"

// Broadcaster is the local fan-out surface. Satisfied by websocket.Hub.
type Broadcaster interface {
	Emit(room string, frame []byte)
}

// RelayPublisher is the cross-instance fan-out surface. Satisfied by
// relay.Relay.
type RelayPublisher interface {
	PublishToRoom(ctx context.Context, event, room string, payload interface{}) error
	PublishToUser(ctx context.Context, event string, userID uuid.UUID, payload interface{}) error
}

type ChatService struct {
	messageRepo      repository.MessageRepository
	readStateRepo    repository.ReadStateRepository
	conversationRepo repository.ConversationRepository
	access           *proxy.AccessControl
	sequencer        *redis.Sequencer
	limiter          *redis.RateLimiter
	typing           *redis.TypingTracker
	presence         *redis.PresenceStore
	cipher           *crypto.ContentCipher
	hub              Broadcaster
	relay            RelayPublisher
	previews         *LinkPreviewFetcher
	pusher           Pusher
	log              *logger.Logger
}

type ChatServiceDeps struct {
	MessageRepo      repository.MessageRepository
	ReadStateRepo    repository.ReadStateRepository
	ConversationRepo repository.ConversationRepository
	Access           *proxy.AccessControl
	Sequencer        *redis.Sequencer
	Limiter          *redis.RateLimiter
	Typing           *redis.TypingTracker
	Presence         *redis.PresenceStore
	Cipher           *crypto.ContentCipher
	Hub              Broadcaster
	Relay            RelayPublisher
	Previews         *LinkPreviewFetcher
	Pusher           Pusher
	Log              *logger.Logger
}

func NewChatService(deps ChatServiceDeps) *ChatService {
	if deps.Pusher == nil {
		deps.Pusher = NewLogPusher(deps.Log)
	}
	return &ChatService{
		messageRepo:      deps.MessageRepo,
		readStateRepo:    deps.ReadStateRepo,
		conversationRepo: deps.ConversationRepo,
		access:           deps.Access,
		sequencer:        deps.Sequencer,
		limiter:          deps.Limiter,
		typing:           deps.Typing,
		presence:         deps.Presence,
		cipher:           deps.Cipher,
		hub:              deps.Hub,
		relay:            deps.Relay,
		previews:         deps.Previews,
		pusher:           deps.Pusher,
		log:              deps.Log,
	}
}

type SendInput struct {
	Target             conversation.Target
	SenderID           uuid.UUID
	Content            string
	Attachment         *chat.Attachment
	ReplyToID          uuid.NullUUID
	Mentions           []uuid.UUID
	ClientSubmissionID string
}

// Send persists and fans out a new message. The returned view carries the
// assigned sequence number; link previews and recipient alerts complete in
// the background.
func (s *ChatService) Send(ctx context.Context, in SendInput) (MessageView, error) {
	conv, err := s.conversationRepo.GetOrCreateByTarget(ctx, in.Target, in.SenderID)
	if err != nil {
		return MessageView{}, err
	}
	if _, err := s.access.RequireCollaborator(ctx, in.SenderID, conv.ID); err != nil {
		return MessageView{}, err
	}

	result, err := s.limiter.AllowMessage(ctx, in.SenderID.String())
	if err != nil {
		return MessageView{}, err
	}
	if !result.Allowed {
		return MessageView{}, fmt.Errorf("%w: retry in %s", taskerrors.ErrTooManyRequests, result.ResetIn)
	}

	if in.ClientSubmissionID != "" {
		existing, err := s.messageRepo.GetByClientSubmissionID(ctx, in.ClientSubmissionID)
		if err == nil {
			return s.view(existing)
		}
		if !errors.Is(err, taskerrors.ErrNotFound) {
			return MessageView{}, err
		}
	}

	if in.ReplyToID.Valid {
		parent, err := s.messageRepo.GetByID(ctx, in.ReplyToID.UUID)
		if err != nil || parent.ConversationID != conv.ID {
			return MessageView{}, fmt.Errorf("%w: reply target not in conversation", taskerrors.ErrBadRequest)
		}
	}

	if in.Content == "" && in.Attachment == nil {
		return MessageView{}, fmt.Errorf("%w: empty message", taskerrors.ErrBadRequest)
	}

	kind := chat.KindText
	if in.Attachment != nil {
		kind = chat.KindForMediaType(in.Attachment.MediaType)
	}

	msg := chat.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Kind:           kind,
		DeliveryStatus: chat.StatusSent,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if in.Content != "" {
		ciphertext, err := s.cipher.Encrypt(in.Content)
		if err != nil {
			return MessageView{}, fmt.Errorf("%w: encrypt: %v", taskerrors.ErrInternal, err)
		}
		msg.Content = ciphertext
		msg.IsEncrypted = true
	}
	if in.Attachment != nil {
		raw, err := json.Marshal(in.Attachment)
		if err != nil {
			return MessageView{}, fmt.Errorf("%w: attachment encode: %v", taskerrors.ErrInternal, err)
		}
		msg.Attachment = sql.NullString{String: string(raw), Valid: true}
	}
	if len(in.Mentions) > 0 {
		raw, err := json.Marshal(in.Mentions)
		if err != nil {
			return MessageView{}, fmt.Errorf("%w: mentions encode: %v", taskerrors.ErrInternal, err)
		}
		msg.Mentions = sql.NullString{String: string(raw), Valid: true}
	}
	msg.ReplyToID = in.ReplyToID
	if in.ClientSubmissionID != "" {
		msg.ClientSubmissionID = sql.NullString{String: in.ClientSubmissionID, Valid: true}
	}

	seq, err := s.sequencer.Next(ctx, conv.ID)
	if err != nil {
		return MessageView{}, err
	}
	msg.Seq = seq

	if err := s.messageRepo.Create(ctx, &msg); err != nil {
		// Two retries of the same submission racing: the loser re-reads
		// the winner's row.
		if in.ClientSubmissionID != "" && errors.Is(err, taskerrors.ErrConflict) {
			existing, lookupErr := s.messageRepo.GetByClientSubmissionID(ctx, in.ClientSubmissionID)
			if lookupErr == nil {
				return s.view(existing)
			}
		}
		return MessageView{}, err
	}

	view, err := s.view(msg)
	if err != nil {
		return MessageView{}, err
	}

	s.emit(ctx, events.EventMessage, events.ConversationRoom(conv.ID), view)

	go s.afterSend(conv, msg, view)

	return view, nil
}

// afterSend runs the non-critical tail of a send. Failures here are logged
// and never reach the sender.
func (s *ChatService) afterSend(conv conversation.Conversation, msg chat.Message, view MessageView) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	if s.previews != nil && view.Content != "" {
		if url := FirstURL(view.Content); url != "" {
			s.attachLinkPreview(ctx, msg, url)
		}
	}

	collaborators, err := s.conversationRepo.ListActiveCollaborators(ctx, conv.ID)
	if err != nil {
		s.log.Errorf("chat: alert fan-out skipped for %s: %v", msg.ID, err)
		return
	}

	alert := events.AlertPayload{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Kind:           msg.Kind,
		Preview:        previewText(view.Content),
		Seq:            msg.Seq,
	}
	for _, collab := range collaborators {
		if collab.UserID == msg.SenderID {
			continue
		}
		s.emitToUser(ctx, events.EventNewAlert, collab.UserID, alert)
		if err := s.pusher.Push(ctx, collab.UserID, alert); err != nil {
			s.log.Errorf("chat: push failed for %s: %v", collab.UserID, err)
		}
	}
}

func (s *ChatService) attachLinkPreview(ctx context.Context, msg chat.Message, url string) {
	preview, err := s.previews.Fetch(ctx, url)
	if err != nil {
		s.log.Infof("chat: link preview skipped for %s: %v", msg.ID, err)
		return
	}

	fresh, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		s.log.Errorf("chat: link preview reload failed for %s: %v", msg.ID, err)
		return
	}
	raw, err := json.Marshal(preview)
	if err != nil {
		return
	}
	fresh.LinkPreview = sql.NullString{String: string(raw), Valid: true}
	fresh.UpdatedAt = time.Now()
	if err := s.messageRepo.Update(ctx, fresh); err != nil {
		s.log.Errorf("chat: link preview store failed for %s: %v", msg.ID, err)
		return
	}

	view, err := s.view(fresh)
	if err != nil {
		return
	}
	s.emit(ctx, events.EventMessageUpdate, events.ConversationRoom(fresh.ConversationID), view)
}

// Edit replaces a message's content, keeping the prior content in the
// append-only edit history. Sender-only.
func (s *ChatService) Edit(ctx context.Context, userID, messageID uuid.UUID, content string) (MessageView, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return MessageView{}, err
	}
	if _, err := s.access.RequireCollaborator(ctx, userID, msg.ConversationID); err != nil {
		return MessageView{}, err
	}
	if msg.SenderID != userID {
		return MessageView{}, fmt.Errorf("%w: only the sender may edit", taskerrors.ErrForbidden)
	}
	if msg.Deleted {
		return MessageView{}, fmt.Errorf("%w: message is deleted", taskerrors.ErrBadRequest)
	}
	if content == "" {
		return MessageView{}, fmt.Errorf("%w: empty content", taskerrors.ErrBadRequest)
	}

	revisions, err := decodeRevisions(msg.EditHistory)
	if err != nil {
		return MessageView{}, fmt.Errorf("%w: edit history decode: %v", taskerrors.ErrInternal, err)
	}
	revisions = append(revisions, chat.EditRevision{
		Content:     msg.Content,
		IsEncrypted: msg.IsEncrypted,
		EditedAt:    time.Now(),
	})
	encoded, err := json.Marshal(revisions)
	if err != nil {
		return MessageView{}, fmt.Errorf("%w: edit history encode: %v", taskerrors.ErrInternal, err)
	}

	ciphertext, err := s.cipher.Encrypt(content)
	if err != nil {
		return MessageView{}, fmt.Errorf("%w: encrypt: %v", taskerrors.ErrInternal, err)
	}

	msg.EditHistory = sql.NullString{String: string(encoded), Valid: true}
	msg.Content = ciphertext
	msg.IsEncrypted = true
	msg.Edited = true
	msg.UpdatedAt = time.Now()
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return MessageView{}, err
	}

	view, err := s.view(msg)
	if err != nil {
		return MessageView{}, err
	}
	s.emit(ctx, events.EventMessageUpdate, events.ConversationRoom(msg.ConversationID), view)
	return view, nil
}

// Delete soft-tombstones a message. Sender or conversation owner only.
// Reactions and edit history stay in place.
func (s *ChatService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	collab, err := s.access.RequireCollaborator(ctx, userID, msg.ConversationID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID && collab.Role != conversation.RoleOwner {
		return fmt.Errorf("%w: only the sender or owner may delete", taskerrors.ErrForbidden)
	}
	if msg.Deleted {
		return nil
	}

	placeholder, err := s.cipher.Encrypt(deletedPlaceholder)
	if err != nil {
		return fmt.Errorf("%w: encrypt: %v", taskerrors.ErrInternal, err)
	}
	now := time.Now()
	msg.Content = placeholder
	msg.IsEncrypted = true
	msg.Deleted = true
	msg.DeletedAt = sql.NullTime{Time: now, Valid: true}
	msg.UpdatedAt = now
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return err
	}

	s.emit(ctx, events.EventMessageDelete, events.ConversationRoom(msg.ConversationID), events.DeletePayload{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
	})
	return nil
}

// ToggleReaction adds or removes one (user, emoji) entry and re-broadcasts
// the full reaction list.
func (s *ChatService) ToggleReaction(ctx context.Context, userID, messageID uuid.UUID, emoji string) ([]events.Reaction, error) {
	if emoji == "" {
		return nil, fmt.Errorf("%w: empty emoji", taskerrors.ErrBadRequest)
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireCollaborator(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}

	_, err = s.messageRepo.GetReaction(ctx, messageID, userID, emoji)
	switch {
	case err == nil:
		if err := s.messageRepo.RemoveReaction(ctx, messageID, userID, emoji); err != nil {
			return nil, err
		}
	case errors.Is(err, taskerrors.ErrNotFound):
		reaction := chat.MessageReaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: time.Now(),
		}
		if err := s.messageRepo.AddReaction(ctx, &reaction); err != nil && !errors.Is(err, taskerrors.ErrConflict) {
			return nil, err
		}
	default:
		return nil, err
	}

	rows, err := s.messageRepo.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	reactions := make([]events.Reaction, 0, len(rows))
	for _, r := range rows {
		reactions = append(reactions, events.Reaction{UserID: r.UserID, Emoji: r.Emoji})
	}

	s.emit(ctx, events.EventReactionUpdate, events.ConversationRoom(msg.ConversationID), events.ReactionPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		Reactions:      reactions,
	})
	return reactions, nil
}

// TogglePin flips the pinned flag. Editor or owner only.
func (s *ChatService) TogglePin(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if err := s.access.RequirePinRole(ctx, userID, msg.ConversationID); err != nil {
		return false, err
	}

	msg.Pinned = !msg.Pinned
	msg.UpdatedAt = time.Now()
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return false, err
	}

	s.emit(ctx, events.EventPinUpdate, events.ConversationRoom(msg.ConversationID), events.PinPayload{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Pinned:         msg.Pinned,
	})
	return msg.Pinned, nil
}

// History pages backwards through a conversation using a beforeSeq cursor.
func (s *ChatService) History(ctx context.Context, userID, conversationID uuid.UUID, beforeSeq int64, limit int) ([]MessageView, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	msgs, err := s.messageRepo.ListBefore(ctx, conversationID, beforeSeq, limit)
	if err != nil {
		return nil, err
	}
	return s.views(msgs)
}

// Pinned lists the conversation's pinned messages.
func (s *ChatService) Pinned(ctx context.Context, userID, conversationID uuid.UUID) ([]MessageView, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListPinned(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.views(msgs)
}

// Search scans recent messages and matches the decrypted text. Content is
// ciphertext in the store, so matching happens after decryption here.
func (s *ChatService) Search(ctx context.Context, userID, conversationID uuid.UUID, query string, limit int) ([]MessageView, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", taskerrors.ErrBadRequest)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	msgs, err := s.messageRepo.ListRecent(ctx, conversationID, searchScanLimit)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]MessageView, 0, limit)
	for _, m := range msgs {
		if m.Deleted {
			continue
		}
		view, err := s.view(m)
		if err != nil {
			s.log.Errorf("chat: search decrypt failed for %s: %v", m.ID, err)
			continue
		}
		if strings.Contains(strings.ToLower(view.Content), needle) {
			matches = append(matches, view)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

// SyncSince returns messages created after a timestamp for offline
// catch-up. Clients reconcile order by sequence number.
func (s *ChatService) SyncSince(ctx context.Context, userID, conversationID uuid.UUID, since time.Time) ([]MessageView, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListSince(ctx, conversationID, since)
	if err != nil {
		return nil, err
	}
	return s.views(msgs)
}

// MemberView combines a collaborator with presence and read state.
type MemberView struct {
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	LastReadSeq int64     `json:"last_read_seq"`
}

// Members lists active collaborators with presence and per-member read
// high-water marks.
func (s *ChatService) Members(ctx context.Context, userID, conversationID uuid.UUID) ([]MemberView, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	collaborators, err := s.conversationRepo.ListActiveCollaborators(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(collaborators))
	for _, c := range collaborators {
		ids = append(ids, c.UserID.String())
	}
	presences, err := s.presence.GetMany(ctx, ids)
	if err != nil {
		s.log.Errorf("chat: presence lookup failed for %s: %v", conversationID, err)
		presences = map[string]redis.Presence{}
	}

	readStates, err := s.readStateRepo.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	readBy := make(map[uuid.UUID]chat.ReadState, len(readStates))
	for _, rs := range readStates {
		readBy[rs.UserID] = rs
	}

	members := make([]MemberView, 0, len(collaborators))
	for _, c := range collaborators {
		m := MemberView{UserID: c.UserID, Role: c.Role, Status: redis.StatusOffline}
		if p, ok := presences[c.UserID.String()]; ok {
			m.Status = p.Status
			m.LastSeen = p.LastSeen
		}
		if rs, ok := readBy[c.UserID]; ok {
			m.LastReadSeq = rs.LastReadSeq
		}
		members = append(members, m)
	}
	return members, nil
}

// MarkRead moves the caller's read high-water mark to the conversation's
// current top sequence. Concurrent calls are safe; the stored value only
// moves forward.
func (s *ChatService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return 0, err
	}

	seq, err := s.sequencer.Current(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	if err := s.readStateRepo.Upsert(ctx, userID, conversationID, seq, now); err != nil {
		return 0, err
	}

	payload := events.ReadPayload{
		ConversationID: conversationID,
		UserID:         userID,
		LastReadSeq:    seq,
		ReadAt:         now,
	}
	s.emit(ctx, events.EventRead, events.ConversationRoom(conversationID), payload)
	s.emitToUser(ctx, events.EventReadSync, userID, payload)
	return seq, nil
}

// MarkDelivered bumps a message to delivered once. The sender's own ack is
// a no-op, as is a second ack.
func (s *ChatService) MarkDelivered(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return nil
	}
	if _, err := s.access.RequireCollaborator(ctx, userID, msg.ConversationID); err != nil {
		return err
	}

	changed, err := s.messageRepo.MarkDelivered(ctx, messageID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.emit(ctx, events.EventDelivered, events.ConversationRoom(msg.ConversationID), events.DeliveredPayload{
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		UserID:         userID,
	})
	return nil
}

// SetTyping tracks and fans out the ephemeral typing indicator. Nothing is
// persisted.
func (s *ChatService) SetTyping(ctx context.Context, userID, conversationID uuid.UUID, typing bool) error {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return err
	}
	if s.typing != nil {
		if err := s.typing.Set(ctx, conversationID.String(), userID.String(), typing); err != nil {
			s.log.Errorf("chat: typing track failed for %s: %v", userID, err)
		}
	}

	event := events.EventTyping
	if !typing {
		event = events.EventStopTyping
	}
	s.emit(ctx, event, events.ConversationRoom(conversationID), events.TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
	})
	return nil
}

// UnreadCount is the distance between the conversation's top sequence and
// the caller's read mark.
func (s *ChatService) UnreadCount(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	if _, err := s.access.RequireCollaborator(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	top, err := s.sequencer.Current(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	state, err := s.readStateRepo.Get(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, taskerrors.ErrNotFound) {
			return top, nil
		}
		return 0, err
	}
	unread := top - state.LastReadSeq
	if unread < 0 {
		unread = 0
	}
	return unread, nil
}

// emit broadcasts locally first, then relays. Local delivery never waits
// on the relay.
func (s *ChatService) emit(ctx context.Context, event, room string, payload interface{}) {
	frame, err := events.Encode(event, payload)
	if err != nil {
		s.log.Errorf("chat: encode %s failed: %v", event, err)
		return
	}
	s.hub.Emit(room, frame)
	if s.relay != nil {
		if err := s.relay.PublishToRoom(ctx, event, room, payload); err != nil {
			s.log.Errorf("chat: relay %s failed: %v", event, err)
		}
	}
}

func (s *ChatService) emitToUser(ctx context.Context, event string, userID uuid.UUID, payload interface{}) {
	frame, err := events.Encode(event, payload)
	if err != nil {
		s.log.Errorf("chat: encode %s failed: %v", event, err)
		return
	}
	s.hub.Emit(events.UserRoom(userID), frame)
	if s.relay != nil {
		if err := s.relay.PublishToUser(ctx, event, userID, payload); err != nil {
			s.log.Errorf("chat: relay %s failed: %v", event, err)
		}
	}
}

func decodeRevisions(raw sql.NullString) ([]chat.EditRevision, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var revisions []chat.EditRevision
	if err := json.Unmarshal([]byte(raw.String), &revisions); err != nil {
		return nil, err
	}
	return revisions, nil
}

func previewText(content string) string {
	const max = 120
	if len(content) > max {
		return content[:max]
	}
	return content
}
