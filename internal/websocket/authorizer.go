package websocket

import (
	"context"
	"errors"

	"taskchat/internal/repository"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
)

// RoomAuthorizer decides whether a user may enter a conversation room.
type RoomAuthorizer struct {
	conversationRepo repository.ConversationRepository
}

// NewRoomAuthorizer creates a new room authorizer
func NewRoomAuthorizer(conversationRepo repository.ConversationRepository) *RoomAuthorizer {
	return &RoomAuthorizer{conversationRepo: conversationRepo}
}

// CanJoin reports whether the user is an active collaborator of the
// conversation. Unknown conversations and inactive collaborators are a
// plain "no", not an error.
func (a *RoomAuthorizer) CanJoin(ctx context.Context, userID, conversationID uuid.UUID) (bool, error) {
	collab, err := a.conversationRepo.GetCollaborator(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, taskerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return collab.Active, nil
}
