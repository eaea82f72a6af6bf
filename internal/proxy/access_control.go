package proxy

import (
	"context"
	"errors"

	"taskchat/internal/domain/conversation"
	"taskchat/internal/repository"
	taskerrors "taskchat/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl answers collaborator questions for the chat surface. Every
// operation resolves the caller's collaborator row once and reasons from
// its role.
type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

// RequireCollaborator returns the caller's active collaborator record, or
// ErrForbidden when the caller has no standing in the conversation.
func (a *AccessControl) RequireCollaborator(ctx context.Context, userID, conversationID uuid.UUID) (conversation.Collaborator, error) {
	collab, err := a.conversationRepo.GetCollaborator(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, taskerrors.ErrNotFound) {
			return conversation.Collaborator{}, taskerrors.ErrForbidden
		}
		return conversation.Collaborator{}, err
	}
	if !collab.Active {
		return conversation.Collaborator{}, taskerrors.ErrForbidden
	}
	return collab, nil
}

// RequirePinRole enforces the editor-or-owner rule for pinning.
func (a *AccessControl) RequirePinRole(ctx context.Context, userID, conversationID uuid.UUID) error {
	collab, err := a.RequireCollaborator(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if !conversation.CanPin(collab.Role) {
		return taskerrors.ErrForbidden
	}
	return nil
}
