package repository

import (
	"context"
	"errors"
	"time"

	"taskchat/internal/domain/conversation"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// GetOrCreateByTarget resolves the conversation for a task target, creating
// the row on first use. The unique index on the backing task id makes
// concurrent first sends safe: the loser of the insert race re-reads.
func (r *PostgresConversationRepository) GetOrCreateByTarget(ctx context.Context, target conversation.Target, ownerID uuid.UUID) (conversation.Conversation, error) {
	conv, err := r.getByTarget(ctx, target)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, taskerrors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	conv = conversation.Conversation{
		ID:      uuid.New(),
		OwnerID: ownerID,
	}
	switch target.Kind {
	case conversation.TargetVital:
		conv.VitalTaskID = uuid.NullUUID{UUID: target.TaskID, Valid: true}
	default:
		conv.StandardTaskID = uuid.NullUUID{UUID: target.TaskID, Valid: true}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		owner := conversation.Collaborator{
			ConversationID: conv.ID,
			UserID:         ownerID,
			Role:           conversation.RoleOwner,
			Active:         true,
			JoinedAt:       time.Now(),
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.getByTarget(ctx, target)
		}
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (r *PostgresConversationRepository) getByTarget(ctx context.Context, target conversation.Target) (conversation.Conversation, error) {
	var conv conversation.Conversation
	q := r.db.WithContext(ctx)
	if target.Kind == conversation.TargetVital {
		q = q.Where("vital_task_id = ?", target.TaskID)
	} else {
		q = q.Where("standard_task_id = ?", target.TaskID)
	}
	err := q.First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, taskerrors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var conv conversation.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, taskerrors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (r *PostgresConversationRepository) GetCollaborator(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Collaborator, error) {
	var collab conversation.Collaborator
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ? AND active = true", conversationID, userID).
		First(&collab).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Collaborator{}, taskerrors.ErrNotFound
		}
		return conversation.Collaborator{}, err
	}
	return collab, nil
}

func (r *PostgresConversationRepository) ListActiveCollaborators(ctx context.Context, conversationID uuid.UUID) ([]conversation.Collaborator, error) {
	var collabs []conversation.Collaborator
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND active = true", conversationID).
		Find(&collabs).Error
	return collabs, err
}

func (r *PostgresConversationRepository) ListUserConversationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&conversation.Collaborator{}).
		Where("user_id = ? AND active = true", userID).
		Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r *PostgresConversationRepository) UpsertCollaborator(ctx context.Context, c *conversation.Collaborator) error {
	if c.JoinedAt.IsZero() {
		c.JoinedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "active"}),
	}).Create(c).Error
}
