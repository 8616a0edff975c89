package access

import (
	"context"
	"time"

	"pm-backend/internal/application/identity"
	policies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/application/workspaces"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ActorLoader is the identity / org-role store.
type ActorLoader interface {
	LoadActor(ctx context.Context, userID uuid.UUID) (*policies.Actor, error)
}

// MembershipStore is the workspace membership store.
type MembershipStore interface {
	GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error)
	GetMemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (constants.WorkspaceRole, error)
}

// Service fetches fresh role snapshots from both stores and runs them through the resolver.
type Service struct {
	Identity    ActorLoader
	Memberships MembershipStore
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed       bool                    `json:"allowed"`
	Reason        policies.Reason         `json:"reason"`
	Module        string                  `json:"module"`
	Action        string                  `json:"action"`
	WorkspaceID   *uuid.UUID              `json:"workspace_id"`
	OrgRole       constants.OrgRole       `json:"org_role"`
	StoredRole    constants.WorkspaceRole `json:"stored_role"`
	EffectiveRole constants.WorkspaceRole `json:"effective_role"`
	CheckedAt     time.Time               `json:"checked_at"`
}

// RoleView is the caller's role picture inside one workspace.
type RoleView struct {
	WorkspaceID   uuid.UUID               `json:"workspace_id"`
	OrgRole       constants.OrgRole       `json:"org_role"`
	StoredRole    constants.WorkspaceRole `json:"stored_role"`
	EffectiveRole constants.WorkspaceRole `json:"effective_role"`
}

// Check decides whether userID may perform action on module. With a nil workspaceID only
// org-level rules apply (org admin or a matching grant).
func (s *Service) Check(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID, module, action string) (*Decision, error) {
	actor, err := s.Identity.LoadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &Decision{
		Module:      module,
		Action:      action,
		WorkspaceID: workspaceID,
		OrgRole:     actor.OrgRole,
		CheckedAt:   time.Now().UTC(),
	}
	if workspaceID != nil {
		stored, err := s.storedRole(ctx, *workspaceID, userID)
		if err != nil {
			return nil, err
		}
		d.StoredRole = stored
		d.EffectiveRole = policies.GetEffectiveWorkspaceRole(actor.OrgRole, stored)
	}
	d.Allowed, d.Reason = policies.ExplainPMPermission(*actor, module, action, d.EffectiveRole)
	if !d.Allowed {
		log.Debug().Str("user_id", userID.String()).Str("module", module).Str("action", action).
			Str("effective_role", string(d.EffectiveRole)).Str("reason", string(d.Reason)).
			Msg("access: denied")
	}
	return d, nil
}

// Allowed is Check reduced to its verdict.
func (s *Service) Allowed(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID, module, action string) (bool, error) {
	d, err := s.Check(ctx, userID, workspaceID, module, action)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// EffectiveRole reports the stored and effective workspace roles of userID.
func (s *Service) EffectiveRole(ctx context.Context, userID, workspaceID uuid.UUID) (*RoleView, error) {
	actor, err := s.Identity.LoadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := s.storedRole(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	return &RoleView{
		WorkspaceID:   workspaceID,
		OrgRole:       actor.OrgRole,
		StoredRole:    stored,
		EffectiveRole: policies.GetEffectiveWorkspaceRole(actor.OrgRole, stored),
	}, nil
}

func (s *Service) storedRole(ctx context.Context, workspaceID, userID uuid.UUID) (constants.WorkspaceRole, error) {
	if _, err := s.Memberships.GetWorkspace(ctx, workspaceID); err != nil {
		return constants.WorkspaceRoleNone, err
	}
	return s.Memberships.GetMemberRole(ctx, workspaceID, userID)
}

var (
	_ ActorLoader     = (*identity.Service)(nil)
	_ MembershipStore = (*workspaces.Service)(nil)
)
