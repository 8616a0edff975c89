package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RolePermission binds a (module, action) grant to an org role.
type RolePermission struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Role      string    `gorm:"column:role;not null;uniqueIndex:idx_role_module_action" json:"role"`
	Module    string    `gorm:"column:module;not null;uniqueIndex:idx_role_module_action" json:"module"`
	Action    string    `gorm:"column:action;not null;uniqueIndex:idx_role_module_action" json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RolePermission) TableName() string {
	return "RolePermissions"
}

func (p *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
