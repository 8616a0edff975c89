package policies

import (
	"errors"

	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"gorm.io/gorm"
)

// ValidateOrgRoleAssignment checks an org role change and returns the target user on success.
func ValidateOrgRoleAssignment(db *gorm.DB, params ValidateOrgRoleAssignmentParams) (*domain.User, error) {
	if params.ActorRole != constants.OrgRoleAdmin {
		return nil, ErrOnlyAdminsCanAssignOrgRoles
	}
	if params.ActorUserID == params.TargetUserID {
		return nil, ErrUsersCannotModifyTheirOwnRole
	}
	var target domain.User
	if err := db.Where("user_id = ?", params.TargetUserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	// Prevent last admin downgrade
	if target.OrgRole == string(constants.OrgRoleAdmin) && params.TargetRole != constants.OrgRoleAdmin {
		var count int64
		if err := db.Model(&domain.User{}).Where("org_role = ?", constants.OrgRoleAdmin).Count(&count).Error; err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, ErrOrgMustHaveAtLeastOneAdmin
		}
	}
	return &target, nil
}

type ValidateOrgRoleAssignmentParams struct {
	ActorRole    constants.OrgRole
	TargetRole   constants.OrgRole
	ActorUserID  string
	TargetUserID string
}
