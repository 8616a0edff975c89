package policies

import "errors"

var (
	ErrOnlyWorkspaceAdminsCanManageMembers = errors.New("Only workspace owners and admins can manage members")
	ErrOwnerRoleNotAssignable              = errors.New("The owner role can only be set when a workspace is created")
	ErrInvalidTargetRole                   = errors.New("Role must be one of admin, member, viewer")
	ErrWorkspaceOwnerCannotBeChanged       = errors.New("The workspace owner cannot be changed or removed")
	ErrUsersCannotModifyTheirOwnMembership = errors.New("Users cannot modify their own membership")
	ErrTargetUserNotFound                  = errors.New("Target user not found")
	ErrUserAlreadyMember                   = errors.New("User is already a member of this workspace")
	ErrMemberNotFound                      = errors.New("Member not found")
)
