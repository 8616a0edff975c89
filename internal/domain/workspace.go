package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Workspace is a PM project workspace (backlog, sprints, board and reports hang off it).
type Workspace struct {
	WorkspaceID uuid.UUID         `gorm:"column:workspace_id;type:uuid;primaryKey" json:"workspace_id"`
	Name        string            `gorm:"column:name;not null" json:"name"`
	Key         string            `gorm:"column:workspace_key;type:varchar(10);not null;uniqueIndex" json:"key"`
	Description *string           `gorm:"column:description" json:"description"`
	Settings    datatypes.JSONMap `gorm:"column:settings" json:"settings"`
	CreatedBy   uuid.UUID         `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (Workspace) TableName() string {
	return "PMWorkspaces"
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.WorkspaceID == uuid.Nil {
		w.WorkspaceID = uuid.New()
	}
	return nil
}

// WorkspaceMember is the stored workspace role of one user in one workspace.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID `gorm:"column:workspace_id;type:uuid;primaryKey" json:"workspace_id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Role        string    `gorm:"column:role;not null" json:"role"`
	AddedBy     uuid.UUID `gorm:"column:added_by;type:uuid" json:"added_by"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (WorkspaceMember) TableName() string {
	return "PMWorkspaceMembers"
}

// MemberAudit records a membership change.
type MemberAudit struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID         `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	ActorID     uuid.UUID         `gorm:"column:actor_id;type:uuid;not null" json:"actor_id"`
	TargetID    uuid.UUID         `gorm:"column:target_id;type:uuid;not null" json:"target_id"`
	Event       string            `gorm:"column:event;not null" json:"event"`
	Details     datatypes.JSONMap `gorm:"column:details" json:"details"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func (MemberAudit) TableName() string {
	return "PMMemberAudits"
}

func (a *MemberAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Member audit events.
const (
	MemberEventAdded       = "member_added"
	MemberEventRoleChanged = "member_role_changed"
	MemberEventRemoved     = "member_removed"
)
