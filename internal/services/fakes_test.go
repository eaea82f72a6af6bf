package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskchat/internal/domain/chat"
	"taskchat/internal/domain/conversation"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
)

// In-memory repositories mirroring the Postgres implementations' contracts.

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]chat.Message
	reactions map[string]chat.MessageReaction
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:  make(map[uuid.UUID]chat.Message),
		reactions: make(map[string]chat.MessageReaction),
	}
}

func reactionKey(messageID, userID uuid.UUID, emoji string) string {
	return fmt.Sprintf("%s|%s|%s", messageID, userID, emoji)
}

func (f *fakeMessageRepo) Create(_ context.Context, m *chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ClientSubmissionID.Valid {
		for _, existing := range f.messages {
			if existing.ClientSubmissionID.Valid && existing.ClientSubmissionID.String == m.ClientSubmissionID.String {
				return taskerrors.ErrConflict
			}
		}
	}
	for _, existing := range f.messages {
		if existing.ConversationID == m.ConversationID && existing.Seq == m.Seq {
			return taskerrors.ErrConflict
		}
	}
	f.messages[m.ID] = *m
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return chat.Message{}, taskerrors.ErrNotFound
	}
	return f.withReactions(m), nil
}

func (f *fakeMessageRepo) GetByClientSubmissionID(_ context.Context, submissionID string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ClientSubmissionID.Valid && m.ClientSubmissionID.String == submissionID {
			return f.withReactions(m), nil
		}
	}
	return chat.Message{}, taskerrors.ErrNotFound
}

func (f *fakeMessageRepo) Update(_ context.Context, m chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[m.ID]; !ok {
		return taskerrors.ErrNotFound
	}
	m.Reactions = nil
	f.messages[m.ID] = m
	return nil
}

func (f *fakeMessageRepo) ListBefore(_ context.Context, conversationID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.sortedByConversation(conversationID, false)
	var out []chat.Message
	for _, m := range msgs {
		if beforeSeq > 0 && m.Seq >= beforeSeq {
			continue
		}
		out = append(out, f.withReactions(m))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListSince(_ context.Context, conversationID uuid.UUID, since time.Time) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.sortedByConversation(conversationID, true) {
		if m.UpdatedAt.After(since) {
			out = append(out, f.withReactions(m))
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListRecent(_ context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.sortedByConversation(conversationID, false) {
		if m.Deleted {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListPinned(_ context.Context, conversationID uuid.UUID) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.sortedByConversation(conversationID, false) {
		if m.Pinned && !m.Deleted {
			out = append(out, f.withReactions(m))
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) GetReaction(_ context.Context, messageID, userID uuid.UUID, emoji string) (chat.MessageReaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reactions[reactionKey(messageID, userID, emoji)]
	if !ok {
		return chat.MessageReaction{}, taskerrors.ErrNotFound
	}
	return r, nil
}

func (f *fakeMessageRepo) AddReaction(_ context.Context, r *chat.MessageReaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reactionKey(r.MessageID, r.UserID, r.Emoji)
	if _, ok := f.reactions[key]; ok {
		return taskerrors.ErrConflict
	}
	f.reactions[key] = *r
	return nil
}

func (f *fakeMessageRepo) RemoveReaction(_ context.Context, messageID, userID uuid.UUID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reactions, reactionKey(messageID, userID, emoji))
	return nil
}

func (f *fakeMessageRepo) ListReactions(_ context.Context, messageID uuid.UUID) ([]chat.MessageReaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reactionsFor(messageID), nil
}

func (f *fakeMessageRepo) MarkDelivered(_ context.Context, messageID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.DeliveryStatus != chat.StatusSent {
		return false, nil
	}
	m.DeliveryStatus = chat.StatusDelivered
	f.messages[messageID] = m
	return true, nil
}

func (f *fakeMessageRepo) SweepTombstones(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, m := range f.messages {
		if m.Deleted && !m.Pinned && m.DeletedAt.Valid && m.DeletedAt.Time.Before(olderThan) {
			delete(f.messages, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeMessageRepo) reactionsFor(messageID uuid.UUID) []chat.MessageReaction {
	var out []chat.MessageReaction
	for _, r := range f.reactions {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeMessageRepo) withReactions(m chat.Message) chat.Message {
	m.Reactions = f.reactionsFor(m.ID)
	return m
}

func (f *fakeMessageRepo) sortedByConversation(conversationID uuid.UUID, asc bool) []chat.Message {
	var msgs []chat.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if asc {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].Seq > msgs[j].Seq
	})
	return msgs
}

type fakeReadStateRepo struct {
	mu     sync.Mutex
	states map[string]chat.ReadState
}

func newFakeReadStateRepo() *fakeReadStateRepo {
	return &fakeReadStateRepo{states: make(map[string]chat.ReadState)}
}

func readKey(userID, conversationID uuid.UUID) string {
	return userID.String() + "|" + conversationID.String()
}

func (f *fakeReadStateRepo) Upsert(_ context.Context, userID, conversationID uuid.UUID, seq int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := readKey(userID, conversationID)
	state, ok := f.states[key]
	if !ok {
		f.states[key] = chat.ReadState{UserID: userID, ConversationID: conversationID, LastReadSeq: seq, LastReadAt: at}
		return nil
	}
	if seq > state.LastReadSeq {
		state.LastReadSeq = seq
	}
	if at.After(state.LastReadAt) {
		state.LastReadAt = at
	}
	f.states[key] = state
	return nil
}

func (f *fakeReadStateRepo) Get(_ context.Context, userID, conversationID uuid.UUID) (chat.ReadState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[readKey(userID, conversationID)]
	if !ok {
		return chat.ReadState{}, taskerrors.ErrNotFound
	}
	return state, nil
}

func (f *fakeReadStateRepo) ListForConversation(_ context.Context, conversationID uuid.UUID) ([]chat.ReadState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.ReadState
	for _, s := range f.states {
		if s.ConversationID == conversationID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]conversation.Conversation
	collaborators map[uuid.UUID]map[uuid.UUID]conversation.Collaborator
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]conversation.Conversation),
		collaborators: make(map[uuid.UUID]map[uuid.UUID]conversation.Collaborator),
	}
}

func (f *fakeConversationRepo) GetOrCreateByTarget(_ context.Context, target conversation.Target, ownerID uuid.UUID) (conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if target.Kind == conversation.TargetVital && c.VitalTaskID.Valid && c.VitalTaskID.UUID == target.TaskID {
			return c, nil
		}
		if target.Kind == conversation.TargetStandard && c.StandardTaskID.Valid && c.StandardTaskID.UUID == target.TaskID {
			return c, nil
		}
	}
	conv := conversation.Conversation{ID: uuid.New(), OwnerID: ownerID}
	if target.Kind == conversation.TargetVital {
		conv.VitalTaskID = uuid.NullUUID{UUID: target.TaskID, Valid: true}
	} else {
		conv.StandardTaskID = uuid.NullUUID{UUID: target.TaskID, Valid: true}
	}
	f.conversations[conv.ID] = conv
	f.collaborators[conv.ID] = map[uuid.UUID]conversation.Collaborator{
		ownerID: {ConversationID: conv.ID, UserID: ownerID, Role: conversation.RoleOwner, Active: true, JoinedAt: time.Now()},
	}
	return conv, nil
}

func (f *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return conversation.Conversation{}, taskerrors.ErrNotFound
	}
	return c, nil
}

func (f *fakeConversationRepo) GetCollaborator(_ context.Context, conversationID, userID uuid.UUID) (conversation.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collaborators[conversationID][userID]
	if !ok || !c.Active {
		return conversation.Collaborator{}, taskerrors.ErrNotFound
	}
	return c, nil
}

func (f *fakeConversationRepo) ListActiveCollaborators(_ context.Context, conversationID uuid.UUID) ([]conversation.Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []conversation.Collaborator
	for _, c := range f.collaborators[conversationID] {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) ListUserConversationIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for convID, members := range f.collaborators {
		if c, ok := members[userID]; ok && c.Active {
			out = append(out, convID)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) UpsertCollaborator(_ context.Context, c *conversation.Collaborator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collaborators[c.ConversationID]; !ok {
		f.collaborators[c.ConversationID] = make(map[uuid.UUID]conversation.Collaborator)
	}
	if c.JoinedAt.IsZero() {
		c.JoinedAt = time.Now()
	}
	f.collaborators[c.ConversationID][c.UserID] = *c
	return nil
}

// captureHub records frames per room.
type captureHub struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newCaptureHub() *captureHub {
	return &captureHub{frames: make(map[string][][]byte)}
}

func (h *captureHub) Emit(room string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames[room] = append(h.frames[room], append([]byte(nil), frame...))
}

func (h *captureHub) count(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames[room])
}

func (h *captureHub) all(room string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.frames[room]))
	copy(out, h.frames[room])
	return out
}

type relayCall struct {
	event string
	room  string
	user  uuid.UUID
}

type captureRelay struct {
	mu    sync.Mutex
	rooms []relayCall
	users []relayCall
}

func (r *captureRelay) PublishToRoom(_ context.Context, event, room string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, relayCall{event: event, room: room})
	return nil
}

func (r *captureRelay) PublishToUser(_ context.Context, event string, userID uuid.UUID, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, relayCall{event: event, user: userID})
	return nil
}

func (r *captureRelay) roomCalls() []relayCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]relayCall, len(r.rooms))
	copy(out, r.rooms)
	return out
}
