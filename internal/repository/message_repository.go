package repository

import (
	"context"
	"errors"
	"time"

	"taskchat/internal/domain/chat"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *chat.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return taskerrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error) {
	var m chat.Message
	err := r.db.WithContext(ctx).Preload("Reactions").Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, taskerrors.ErrNotFound
		}
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetByClientSubmissionID(ctx context.Context, submissionID string) (chat.Message, error) {
	var m chat.Message
	err := r.db.WithContext(ctx).Preload("Reactions").
		Where("client_submission_id = ?", submissionID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, taskerrors.ErrNotFound
		}
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) Update(ctx context.Context, m chat.Message) error {
	res := r.db.WithContext(ctx).Omit("Reactions").Save(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return taskerrors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) ListBefore(ctx context.Context, conversationID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error) {
	q := r.db.WithContext(ctx).Preload("Reactions").
		Where("conversation_id = ?", conversationID)
	if beforeSeq > 0 {
		q = q.Where("seq < ?", beforeSeq)
	}
	var msgs []chat.Message
	err := q.Order("seq DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

func (r *PostgresMessageRepository) ListSince(ctx context.Context, conversationID uuid.UUID, since time.Time) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.db.WithContext(ctx).Preload("Reactions").
		Where("conversation_id = ? AND updated_at > ?", conversationID, since).
		Order("seq ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *PostgresMessageRepository) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND deleted = false", conversationID).
		Order("seq DESC").Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *PostgresMessageRepository) ListPinned(ctx context.Context, conversationID uuid.UUID) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.db.WithContext(ctx).Preload("Reactions").
		Where("conversation_id = ? AND pinned = true AND deleted = false", conversationID).
		Order("seq DESC").
		Find(&msgs).Error
	return msgs, err
}

func (r *PostgresMessageRepository) GetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (chat.MessageReaction, error) {
	var reaction chat.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.MessageReaction{}, taskerrors.ErrNotFound
		}
		return chat.MessageReaction{}, err
	}
	return reaction, nil
}

func (r *PostgresMessageRepository) AddReaction(ctx context.Context, reaction *chat.MessageReaction) error {
	res := r.db.WithContext(ctx).Create(reaction)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return taskerrors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&chat.MessageReaction{}).Error
}

func (r *PostgresMessageRepository) ListReactions(ctx context.Context, messageID uuid.UUID) ([]chat.MessageReaction, error) {
	var reactions []chat.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}

func (r *PostgresMessageRepository) MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&chat.Message{}).
		Where("id = ? AND delivery_status = ?", messageID, chat.StatusSent).
		Update("delivery_status", chat.StatusDelivered)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresMessageRepository) SweepTombstones(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("deleted = true AND pinned = false AND deleted_at < ?", olderThan).
		Delete(&chat.Message{})
	return res.RowsAffected, res.Error
}
