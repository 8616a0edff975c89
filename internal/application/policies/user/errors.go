package policies

import "errors"

var (
	ErrOnlyAdminsCanAssignOrgRoles   = errors.New("Only organization admins can assign roles")
	ErrTargetUserNotFound            = errors.New("Target user not found")
	ErrUsersCannotModifyTheirOwnRole = errors.New("Users cannot modify their own role")
	ErrOrgMustHaveAtLeastOneAdmin    = errors.New("Organization must have at least one admin")
)
