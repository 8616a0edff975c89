package policies

import (
	"errors"

	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberOp is the kind of membership change being validated.
type MemberOp string

const (
	MemberOpAdd    MemberOp = "add"
	MemberOpUpdate MemberOp = "update"
	MemberOpRemove MemberOp = "remove"
)

type ValidateMemberChangeParams struct {
	Op           MemberOp
	WorkspaceID  uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    constants.WorkspaceRole // effective role of the actor
	TargetUserID uuid.UUID
	TargetRole   constants.WorkspaceRole // ignored for MemberOpRemove
}

// ValidateMemberChange checks a membership change against the workspace rules.
// For update and remove it returns the current membership row.
func ValidateMemberChange(db *gorm.DB, params ValidateMemberChangeParams) (*domain.WorkspaceMember, error) {
	if !params.ActorRole.CanManageMembers() {
		return nil, ErrOnlyWorkspaceAdminsCanManageMembers
	}
	if params.Op != MemberOpRemove {
		if params.TargetRole == constants.WorkspaceRoleOwner {
			return nil, ErrOwnerRoleNotAssignable
		}
		if !params.TargetRole.IsAssignable() {
			return nil, ErrInvalidTargetRole
		}
	}
	if params.Op != MemberOpAdd && params.ActorUserID == params.TargetUserID {
		return nil, ErrUsersCannotModifyTheirOwnMembership
	}

	if params.Op == MemberOpAdd {
		var target domain.User
		if err := db.Where("user_id = ?", params.TargetUserID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTargetUserNotFound
			}
			return nil, err
		}
		var count int64
		if err := db.Model(&domain.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", params.WorkspaceID, params.TargetUserID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrUserAlreadyMember
		}
		return nil, nil
	}

	var existing domain.WorkspaceMember
	if err := db.Where("workspace_id = ? AND user_id = ?", params.WorkspaceID, params.TargetUserID).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if existing.Role == string(constants.WorkspaceRoleOwner) {
		return nil, ErrWorkspaceOwnerCannotBeChanged
	}
	return &existing, nil
}
