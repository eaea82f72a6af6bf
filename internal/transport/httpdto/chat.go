package httpdto

import "taskchat/internal/domain/chat"

type SendMessageRequest struct {
	TaskID             string           `json:"task_id"`
	IsVital            bool             `json:"is_vital"`
	Content            string           `json:"content"`
	Attachment         *chat.Attachment `json:"attachment,omitempty"`
	ReplyToID          string           `json:"reply_to_id,omitempty"`
	Mentions           []string         `json:"mentions,omitempty"`
	ClientSubmissionID string           `json:"client_submission_id,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

type PinResponse struct {
	Pinned bool `json:"pinned"`
}

type MarkReadResponse struct {
	LastReadSeq int64 `json:"last_read_seq"`
}

type UnreadResponse struct {
	Unread int64 `json:"unread"`
}

type PresignRequest struct {
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	SizeBytes int64  `json:"size_bytes"`
}
