package conversation

import (
	"time"

	"github.com/google/uuid"
)

// TargetKind discriminates the two task-thread flavors a conversation can
// be attached to.
type TargetKind string

const (
	TargetStandard TargetKind = "standard"
	TargetVital    TargetKind = "vital"
)

// Target is the tagged conversation reference, resolved once at the API
// boundary. Exactly one backing task id, tagged by kind.
type Target struct {
	Kind   TargetKind
	TaskID uuid.UUID
}

func Standard(taskID uuid.UUID) Target {
	return Target{Kind: TargetStandard, TaskID: taskID}
}

func Vital(taskID uuid.UUID) Target {
	return Target{Kind: TargetVital, TaskID: taskID}
}

// Conversation represents the conversations table. Exactly one of
// StandardTaskID / VitalTaskID is set; rows are created implicitly on the
// first message to a target.
type Conversation struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	StandardTaskID uuid.NullUUID `gorm:"uniqueIndex"`
	VitalTaskID    uuid.NullUUID `gorm:"uniqueIndex"`
	OwnerID        uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Collaborators []Collaborator `gorm:"foreignKey:ConversationID"`
}

// Collaborator roles, weakest to strongest.
const (
	RoleViewer = "VIEWER"
	RoleEditor = "EDITOR"
	RoleOwner  = "OWNER"
)

// Collaborator represents the collaborators table: who may act on a
// conversation and with which role.
type Collaborator struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           string
	Active         bool
	JoinedAt       time.Time
}

// CanPin reports whether the role may toggle pins (any role above viewer).
func CanPin(role string) bool {
	return role == RoleEditor || role == RoleOwner
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Collaborator) TableName() string {
	return "collaborators"
}
