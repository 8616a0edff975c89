package policies

import "pm-backend/internal/pkg/constants"

// Grant is a (module, action) capability attached to a user through their org role.
type Grant struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// Actor is the caller snapshot the resolver decides on.
type Actor struct {
	OrgRole   constants.OrgRole
	Grants    []Grant
	RoleNames []constants.RoleName
}

// Reason names the rule that produced a permission verdict.
type Reason string

const (
	ReasonOrgAdmin                   Reason = "org_admin"
	ReasonOrgGrant                   Reason = "org_grant"
	ReasonWorkspaceViewerRestriction Reason = "workspace_viewer_restriction"
	ReasonWorkspaceRole              Reason = "workspace_role"
	ReasonDefaultDeny                Reason = "default_deny"
)

// MapToWorkspaceRole derives the workspace role implied by an org role.
// OrgRoleUnknown maps to member.
func MapToWorkspaceRole(orgRole constants.OrgRole) constants.WorkspaceRole {
	switch orgRole {
	case constants.OrgRoleAdmin, constants.OrgRolePO, constants.OrgRoleManager:
		return constants.WorkspaceRoleAdmin
	case constants.OrgRoleAccountant, constants.OrgRoleClient:
		return constants.WorkspaceRoleMember
	case constants.OrgRoleViewer:
		return constants.WorkspaceRoleViewer
	case constants.OrgRoleUnknown:
		return constants.WorkspaceRoleMember
	default:
		return constants.WorkspaceRoleMember
	}
}

// overridesWorkspaceRole is true for org roles whose trust a workspace row cannot lower.
func overridesWorkspaceRole(orgRole constants.OrgRole) bool {
	return orgRole == constants.OrgRoleAdmin || orgRole == constants.OrgRolePO
}

// GetEffectiveWorkspaceRole reconciles the org role with the stored workspace role.
// An explicit membership wins unless the org role is admin or po.
// Pass constants.WorkspaceRoleNone when the user has no membership row.
func GetEffectiveWorkspaceRole(orgRole constants.OrgRole, workspaceRole constants.WorkspaceRole) constants.WorkspaceRole {
	if workspaceRole.IsValid() && !overridesWorkspaceRole(orgRole) {
		return workspaceRole
	}
	return MapToWorkspaceRole(orgRole)
}

// HasPMPermission decides whether actor may perform action on module within a workspace
// where they hold workspaceRole.
func HasPMPermission(actor Actor, module, action string, workspaceRole constants.WorkspaceRole) bool {
	allowed, _ := ExplainPMPermission(actor, module, action, workspaceRole)
	return allowed
}

// ExplainPMPermission is HasPMPermission plus the rule that decided it.
func ExplainPMPermission(actor Actor, module, action string, workspaceRole constants.WorkspaceRole) (bool, Reason) {
	if actor.isAdmin() {
		return true, ReasonOrgAdmin
	}

	if actor.hasGrant(module, action) {
		if workspaceRole == constants.WorkspaceRoleViewer && action != constants.ActionView {
			return false, ReasonWorkspaceViewerRestriction
		}
		return true, ReasonOrgGrant
	}

	switch workspaceRole {
	case constants.WorkspaceRoleOwner, constants.WorkspaceRoleAdmin:
		return true, ReasonWorkspaceRole
	case constants.WorkspaceRoleMember:
		return action != constants.ActionDelete, ReasonWorkspaceRole
	case constants.WorkspaceRoleViewer:
		return action == constants.ActionView, ReasonWorkspaceRole
	}
	return false, ReasonDefaultDeny
}

func (a Actor) isAdmin() bool {
	if a.OrgRole == constants.OrgRoleAdmin {
		return true
	}
	for _, n := range a.RoleNames {
		if n == constants.RoleNameAdmin {
			return true
		}
	}
	return false
}

func (a Actor) hasGrant(module, action string) bool {
	for _, g := range a.Grants {
		if g.Module == module && g.Action == action {
			return true
		}
	}
	return false
}

// IsOrgAdmin reports whether the actor bypasses every PM check: org role admin or the admin role name.
func IsOrgAdmin(actor Actor) bool {
	return actor.isAdmin()
}

// SeesAllWorkspaces reports whether the actor is effectively admin in every workspace,
// member or not.
func SeesAllWorkspaces(actor Actor) bool {
	return actor.isAdmin() || overridesWorkspaceRole(actor.OrgRole)
}
