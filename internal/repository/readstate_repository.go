package repository

import (
	"context"
	"errors"
	"time"

	"taskchat/internal/domain/chat"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresReadStateRepository struct {
	db *gorm.DB
}

func NewReadStateRepository(db *gorm.DB) ReadStateRepository {
	return &PostgresReadStateRepository{db: db}
}

// Upsert writes the high-water mark with GREATEST so concurrent callers can
// never move it backward; every caller succeeds and the max observed seq
// wins.
func (r *PostgresReadStateRepository) Upsert(ctx context.Context, userID, conversationID uuid.UUID, seq int64, at time.Time) error {
	state := &chat.ReadState{
		UserID:         userID,
		ConversationID: conversationID,
		LastReadSeq:    seq,
		LastReadAt:     at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "conversation_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_read_seq": gorm.Expr("GREATEST(read_states.last_read_seq, ?)", seq),
			"last_read_at":  gorm.Expr("GREATEST(read_states.last_read_at, ?)", at),
		}),
	}).Create(state).Error
}

func (r *PostgresReadStateRepository) Get(ctx context.Context, userID, conversationID uuid.UUID) (chat.ReadState, error) {
	var state chat.ReadState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ReadState{}, taskerrors.ErrNotFound
		}
		return chat.ReadState{}, err
	}
	return state, nil
}

func (r *PostgresReadStateRepository) ListForConversation(ctx context.Context, conversationID uuid.UUID) ([]chat.ReadState, error) {
	var states []chat.ReadState
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&states).Error
	return states, err
}
