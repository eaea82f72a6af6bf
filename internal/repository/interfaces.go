package repository

import (
	"context"
	"time"

	"taskchat/internal/domain/chat"
	"taskchat/internal/domain/conversation"

	"github.com/google/uuid"
)

// MessageRepository is the durable store for messages and reaction state.
type MessageRepository interface {
	Create(ctx context.Context, m *chat.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error)
	GetByClientSubmissionID(ctx context.Context, submissionID string) (chat.Message, error)
	Update(ctx context.Context, m chat.Message) error

	// ListBefore returns up to limit messages with seq < beforeSeq in
	// descending seq order. beforeSeq <= 0 means "from the top".
	ListBefore(ctx context.Context, conversationID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error)
	ListSince(ctx context.Context, conversationID uuid.UUID, since time.Time) ([]chat.Message, error)
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error)
	ListPinned(ctx context.Context, conversationID uuid.UUID) ([]chat.Message, error)

	GetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (chat.MessageReaction, error)
	AddReaction(ctx context.Context, r *chat.MessageReaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]chat.MessageReaction, error)

	// MarkDelivered bumps SENT -> DELIVERED only; returns false when the
	// status was already delivered or read.
	MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error)

	// SweepTombstones hard-deletes soft-deleted messages older than the
	// cutoff, skipping pinned ones. Returns rows removed.
	SweepTombstones(ctx context.Context, olderThan time.Time) (int64, error)
}

// ReadStateRepository tracks per-(user, conversation) read high-water marks.
type ReadStateRepository interface {
	// Upsert never moves LastReadSeq backward, whatever the caller passes.
	Upsert(ctx context.Context, userID, conversationID uuid.UUID, seq int64, at time.Time) error
	Get(ctx context.Context, userID, conversationID uuid.UUID) (chat.ReadState, error)
	ListForConversation(ctx context.Context, conversationID uuid.UUID) ([]chat.ReadState, error)
}

// ConversationRepository resolves conversation targets and collaboration
// records.
type ConversationRepository interface {
	GetOrCreateByTarget(ctx context.Context, target conversation.Target, ownerID uuid.UUID) (conversation.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetCollaborator(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Collaborator, error)
	ListActiveCollaborators(ctx context.Context, conversationID uuid.UUID) ([]conversation.Collaborator, error)
	ListUserConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	UpsertCollaborator(ctx context.Context, c *conversation.Collaborator) error
}
