package services

import (
	"encoding/json"
	"fmt"
	"time"

	"taskchat/internal/domain/chat"
	"taskchat/internal/events"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
)

// MessageView is the read-optimized shape sent over sockets and HTTP.
// Content is plaintext; ciphertext never leaves the service layer.
type MessageView struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	SenderID       uuid.UUID         `json:"sender_id"`
	Seq            int64             `json:"seq"`
	Kind           string            `json:"kind"`
	Content        string            `json:"content,omitempty"`
	Attachment     *chat.Attachment  `json:"attachment,omitempty"`
	ReplyToID      *uuid.UUID        `json:"reply_to_id,omitempty"`
	Mentions       []uuid.UUID       `json:"mentions,omitempty"`
	Reactions      []events.Reaction `json:"reactions,omitempty"`
	LinkPreview    *chat.LinkPreview `json:"link_preview,omitempty"`
	DeliveryStatus string            `json:"delivery_status"`
	Pinned         bool              `json:"pinned"`
	Edited         bool              `json:"edited"`
	Deleted        bool              `json:"deleted"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (s *ChatService) view(msg chat.Message) (MessageView, error) {
	v := MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Seq:            msg.Seq,
		Kind:           msg.Kind,
		DeliveryStatus: msg.DeliveryStatus,
		Pinned:         msg.Pinned,
		Edited:         msg.Edited,
		Deleted:        msg.Deleted,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
	}

	if len(msg.Content) > 0 {
		if msg.IsEncrypted {
			plaintext, err := s.cipher.Decrypt(msg.Content)
			if err != nil {
				return MessageView{}, fmt.Errorf("%w: decrypt %s: %v", taskerrors.ErrInternal, msg.ID, err)
			}
			v.Content = plaintext
		} else {
			v.Content = string(msg.Content)
		}
	}

	if msg.Attachment.Valid {
		var a chat.Attachment
		if err := json.Unmarshal([]byte(msg.Attachment.String), &a); err == nil {
			v.Attachment = &a
		}
	}
	if msg.ReplyToID.Valid {
		id := msg.ReplyToID.UUID
		v.ReplyToID = &id
	}
	if msg.Mentions.Valid {
		_ = json.Unmarshal([]byte(msg.Mentions.String), &v.Mentions)
	}
	if msg.LinkPreview.Valid {
		var lp chat.LinkPreview
		if err := json.Unmarshal([]byte(msg.LinkPreview.String), &lp); err == nil {
			v.LinkPreview = &lp
		}
	}
	for _, r := range msg.Reactions {
		v.Reactions = append(v.Reactions, events.Reaction{UserID: r.UserID, Emoji: r.Emoji})
	}
	return v, nil
}

func (s *ChatService) views(msgs []chat.Message) ([]MessageView, error) {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v, err := s.view(m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
