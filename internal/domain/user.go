package domain

import (
	"time"

	"pm-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a row of the client-management Users table as seen by the PM module.
// OrgRole is kept as a plain string so unknown tags written by other systems still load.
type User struct {
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string                      `gorm:"column:fullname;not null" json:"fullname"`
	Email        string                      `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string                      `gorm:"column:password_hash;not null" json:"-"`
	OrgRole      string                      `gorm:"column:org_role;not null;default:viewer" json:"org_role"`
	RoleNames    datatypes.JSONSlice[string] `gorm:"column:role_names" json:"role_names"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// AuxRoleNames returns RoleNames as typed values.
func (u *User) AuxRoleNames() []constants.RoleName {
	return constants.RoleNames(u.RoleNames)
}
