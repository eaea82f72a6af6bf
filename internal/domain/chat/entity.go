package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message kinds. Kind is derived from the attachment's media type when an
// attachment is present, otherwise text. System messages are plaintext.
const (
	KindText   = "TEXT"
	KindImage  = "IMAGE"
	KindFile   = "FILE"
	KindAudio  = "AUDIO"
	KindSystem = "SYSTEM"
)

// Delivery status for the recipient's own acknowledgment. Monotonic:
// sent -> delivered -> read, never backward. ReadState is the authority
// for "read up to sequence N"; this field is a per-message convenience.
const (
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
)

// Message represents the messages table. Seq is assigned from the shared
// sequencer at persist time and is immutable; (conversation_id, seq) is
// unique. Content holds ciphertext when IsEncrypted is set.
type Message struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID     uuid.UUID `gorm:"type:uuid;index;uniqueIndex:uq_conversation_seq,priority:1"`
	SenderID           uuid.UUID `gorm:"type:uuid"`
	Seq                int64     `gorm:"uniqueIndex:uq_conversation_seq,priority:2"`
	Kind               string
	Content            []byte
	IsEncrypted        bool
	Attachment         sql.NullString `gorm:"type:jsonb"`
	ReplyToID          uuid.NullUUID
	Mentions           sql.NullString `gorm:"type:jsonb"`
	EditHistory        sql.NullString `gorm:"type:jsonb"`
	LinkPreview        sql.NullString `gorm:"type:jsonb"`
	ClientSubmissionID sql.NullString `gorm:"uniqueIndex"`
	DeliveryStatus     string
	Pinned             bool
	Edited             bool
	Deleted            bool
	DeletedAt          sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Reactions []MessageReaction `gorm:"foreignKey:MessageID"`
}

// MessageReaction represents message_reactions. At most one row per
// (message, user, emoji); toggling removes or inserts.
type MessageReaction struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Emoji     string    `gorm:"primaryKey"`
	CreatedAt time.Time
}

// ReadState represents read_states: one row per (user, conversation)
// holding the high-water mark of read sequence numbers. LastReadSeq never
// decreases.
type ReadState struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastReadSeq    int64
	LastReadAt     time.Time
}

// Attachment is the descriptor serialized into Message.Attachment.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	SizeBytes int64  `json:"size_bytes"`
	ObjectKey string `json:"object_key"`
	URL       string `json:"url,omitempty"`
}

// EditRevision is one entry of the append-only edit history. Prior content
// is kept encrypted, like the live content.
type EditRevision struct {
	Content     []byte    `json:"content"`
	IsEncrypted bool      `json:"is_encrypted"`
	EditedAt    time.Time `json:"edited_at"`
}

// LinkPreview is filled asynchronously after send when the text contains a
// URL.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// KindForMediaType derives the message kind from an attachment media type.
func KindForMediaType(mediaType string) string {
	switch {
	case len(mediaType) >= 6 && mediaType[:6] == "image/":
		return KindImage
	case len(mediaType) >= 6 && mediaType[:6] == "audio/":
		return KindAudio
	default:
		return KindFile
	}
}

// StatusRank orders delivery statuses so transitions never regress.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

func (Message) TableName() string {
	return "messages"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

func (ReadState) TableName() string {
	return "read_states"
}
