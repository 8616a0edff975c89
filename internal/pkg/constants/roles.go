package constants

import "errors"

var (
	ErrInvalidOrgRole       = errors.New("Invalid organization role")
	ErrInvalidWorkspaceRole = errors.New("Invalid workspace role")
)

// OrgRole is the system-wide role stored on the user (enum_Users_org_role).
type OrgRole string

const (
	OrgRoleAdmin      OrgRole = "admin"
	OrgRolePO         OrgRole = "po"
	OrgRoleManager    OrgRole = "manager"
	OrgRoleAccountant OrgRole = "accountant"
	OrgRoleClient     OrgRole = "client"
	OrgRoleViewer     OrgRole = "viewer"

	// OrgRoleUnknown stands for any stored tag outside the known set.
	// It only comes out of NormalizeOrgRole; ParseOrgRole never returns it.
	OrgRoleUnknown OrgRole = "unknown"
)

// ValidOrgRoles lists the assignable org roles.
var ValidOrgRoles = []OrgRole{OrgRoleAdmin, OrgRolePO, OrgRoleManager, OrgRoleAccountant, OrgRoleClient, OrgRoleViewer}

func (r OrgRole) String() string { return string(r) }

// IsValid returns true if r is one of ValidOrgRoles.
func (r OrgRole) IsValid() bool {
	switch r {
	case OrgRoleAdmin, OrgRolePO, OrgRoleManager, OrgRoleAccountant, OrgRoleClient, OrgRoleViewer:
		return true
	}
	return false
}

// ParseOrgRole returns ErrInvalidOrgRole for anything outside ValidOrgRoles.
func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(s)
	if !r.IsValid() {
		return "", ErrInvalidOrgRole
	}
	return r, nil
}

// NormalizeOrgRole is ParseOrgRole with the permissive fallback: unknown tags become OrgRoleUnknown.
func NormalizeOrgRole(s string) OrgRole {
	r, err := ParseOrgRole(s)
	if err != nil {
		return OrgRoleUnknown
	}
	return r
}

// WorkspaceRole is a user's role inside one PM workspace.
type WorkspaceRole string

const (
	WorkspaceRoleOwner  WorkspaceRole = "owner"
	WorkspaceRoleAdmin  WorkspaceRole = "admin"
	WorkspaceRoleMember WorkspaceRole = "member"
	WorkspaceRoleViewer WorkspaceRole = "viewer"

	// WorkspaceRoleNone means the user has no membership row.
	WorkspaceRoleNone WorkspaceRole = ""
)

// AssignableWorkspaceRoles excludes owner, which is only set when the workspace is created.
var AssignableWorkspaceRoles = []WorkspaceRole{WorkspaceRoleAdmin, WorkspaceRoleMember, WorkspaceRoleViewer}

func (r WorkspaceRole) String() string { return string(r) }

func (r WorkspaceRole) IsValid() bool {
	switch r {
	case WorkspaceRoleOwner, WorkspaceRoleAdmin, WorkspaceRoleMember, WorkspaceRoleViewer:
		return true
	}
	return false
}

// IsAssignable reports whether r may be set through member management.
func (r WorkspaceRole) IsAssignable() bool {
	return r.IsValid() && r != WorkspaceRoleOwner
}

// CanManageMembers is true for owner and admin.
func (r WorkspaceRole) CanManageMembers() bool {
	return r == WorkspaceRoleOwner || r == WorkspaceRoleAdmin
}

func ParseWorkspaceRole(s string) (WorkspaceRole, error) {
	r := WorkspaceRole(s)
	if !r.IsValid() {
		return WorkspaceRoleNone, ErrInvalidWorkspaceRole
	}
	return r, nil
}

// RoleName is an auxiliary role tag a user can carry next to the org role.
type RoleName string

// RoleNameAdmin grants the same bypass as OrgRoleAdmin.
const RoleNameAdmin RoleName = "admin"

// RoleNames converts stored strings to RoleName values.
func RoleNames(names []string) []RoleName {
	out := make([]RoleName, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, RoleName(n))
		}
	}
	return out
}
