package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"taskchat/internal/domain/chat"
	"taskchat/internal/storage"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
)

const maxAttachmentBytes = 100 << 20

// AttachmentService mints presigned upload slots for attachment blobs and
// resolves descriptors back to download URLs.
type AttachmentService struct {
	storage *storage.Client
}

func NewAttachmentService(storage *storage.Client) *AttachmentService {
	return &AttachmentService{storage: storage}
}

type PresignInput struct {
	UploaderID uuid.UUID
	FileName   string
	MediaType  string
	SizeBytes  int64
}

type PresignResult struct {
	Descriptor chat.Attachment   `json:"descriptor"`
	UploadURL  string            `json:"upload_url"`
	Headers    map[string]string `json:"headers"`
}

// Presign validates the upload and returns the URL plus the descriptor the
// client echoes back on send.
func (s *AttachmentService) Presign(ctx context.Context, in PresignInput) (PresignResult, error) {
	if s.storage == nil {
		return PresignResult{}, errors.New("attachment storage is not configured")
	}
	if in.UploaderID == uuid.Nil || in.FileName == "" || in.SizeBytes <= 0 {
		return PresignResult{}, fmt.Errorf("%w: uploader, file name and size are required", taskerrors.ErrBadRequest)
	}
	if in.SizeBytes > maxAttachmentBytes {
		return PresignResult{}, fmt.Errorf("%w: attachment too large", taskerrors.ErrBadRequest)
	}
	if err := s.storage.ValidateMediaType(in.MediaType); err != nil {
		return PresignResult{}, fmt.Errorf("%w: %v", taskerrors.ErrBadRequest, err)
	}

	key := attachmentKey(in.UploaderID, in.FileName)
	uploadURL, headers, err := s.storage.PresignPut(ctx, key, in.MediaType, in.SizeBytes)
	if err != nil {
		return PresignResult{}, err
	}

	return PresignResult{
		Descriptor: chat.Attachment{
			Name:      in.FileName,
			MediaType: in.MediaType,
			SizeBytes: in.SizeBytes,
			ObjectKey: key,
			URL:       s.storage.FileURL(key),
		},
		UploadURL: uploadURL,
		Headers:   headers,
	}, nil
}

// DownloadURL resolves a stored descriptor to a presigned read URL.
func (s *AttachmentService) DownloadURL(ctx context.Context, a chat.Attachment) (string, error) {
	if s.storage == nil {
		return "", errors.New("attachment storage is not configured")
	}
	if a.ObjectKey == "" {
		return "", fmt.Errorf("%w: attachment has no object key", taskerrors.ErrBadRequest)
	}
	return s.storage.PresignGet(ctx, a.ObjectKey)
}

func attachmentKey(uploaderID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := fmt.Sprintf("attachments/%s/%s", uploaderID.String(), uuid.New().String())
	if ext == "" {
		return base
	}
	return base + ext
}
