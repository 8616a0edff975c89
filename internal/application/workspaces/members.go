package workspaces

import (
	"context"
	"errors"

	policies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GetMemberRole returns the stored role of userID in workspaceID, or WorkspaceRoleNone.
// A stored tag outside the workspace role enum is reported as WorkspaceRoleNone.
func (s *Service) GetMemberRole(ctx context.Context, workspaceID, userID uuid.UUID) (constants.WorkspaceRole, error) {
	var m domain.WorkspaceMember
	err := s.DB.WithContext(ctx).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return constants.WorkspaceRoleNone, nil
	}
	if err != nil {
		return constants.WorkspaceRoleNone, err
	}
	role, perr := constants.ParseWorkspaceRole(m.Role)
	if perr != nil {
		log.Warn().Str("workspace_id", workspaceID.String()).Str("user_id", userID.String()).
			Str("role", m.Role).Msg("workspaces: unrecognized stored workspace role, treating as absent")
		return constants.WorkspaceRoleNone, nil
	}
	return role, nil
}

// MemberView is a member row joined with the user's profile.
type MemberView struct {
	UserID   uuid.UUID `json:"user_id"`
	Fullname string    `json:"fullname"`
	Email    string    `json:"email"`
	OrgRole  string    `json:"org_role"`
	Role     string    `json:"role"`
	AddedBy  uuid.UUID `json:"added_by"`
	JoinedAt string    `json:"joinedAt"`
}

// ListMembers returns the members of a workspace, owner first then by join time.
func (s *Service) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]MemberView, error) {
	if _, err := s.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	var members []domain.WorkspaceMember
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users := map[uuid.UUID]domain.User{}
	if len(ids) > 0 {
		var list []domain.User
		if err := s.DB.WithContext(ctx).Where("user_id IN ?", ids).Find(&list).Error; err != nil {
			return nil, err
		}
		for _, u := range list {
			users[u.UserID] = u
		}
	}

	out := make([]MemberView, 0, len(members))
	for _, m := range members {
		u := users[m.UserID]
		v := MemberView{
			UserID:   m.UserID,
			Fullname: u.Fullname,
			Email:    u.Email,
			OrgRole:  u.OrgRole,
			Role:     m.Role,
			AddedBy:  m.AddedBy,
			JoinedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if m.Role == string(constants.WorkspaceRoleOwner) {
			out = append([]MemberView{v}, out...)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// MemberChangeInput describes a membership change made by ActorID, whose effective
// workspace role is ActorRole.
type MemberChangeInput struct {
	WorkspaceID  uuid.UUID
	ActorID      uuid.UUID
	ActorRole    constants.WorkspaceRole
	TargetUserID uuid.UUID
	Role         string
}

// AddMember adds TargetUserID with Role.
func (s *Service) AddMember(ctx context.Context, in MemberChangeInput) (*domain.WorkspaceMember, error) {
	if _, err := s.GetWorkspace(ctx, in.WorkspaceID); err != nil {
		return nil, err
	}
	role := constants.WorkspaceRole(in.Role)
	var member *domain.WorkspaceMember
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := policies.ValidateMemberChange(tx, policies.ValidateMemberChangeParams{
			Op:           policies.MemberOpAdd,
			WorkspaceID:  in.WorkspaceID,
			ActorUserID:  in.ActorID,
			ActorRole:    in.ActorRole,
			TargetUserID: in.TargetUserID,
			TargetRole:   role,
		}); err != nil {
			return err
		}
		member = &domain.WorkspaceMember{
			WorkspaceID: in.WorkspaceID,
			UserID:      in.TargetUserID,
			Role:        string(role),
			AddedBy:     in.ActorID,
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return audit(tx, in, domain.MemberEventAdded, datatypes.JSONMap{"role": string(role)})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("workspace_id", in.WorkspaceID.String()).Str("user_id", in.TargetUserID.String()).
		Str("role", string(role)).Msg("workspaces: member added")
	return member, nil
}

// UpdateMemberRole changes the stored role of an existing non-owner member.
func (s *Service) UpdateMemberRole(ctx context.Context, in MemberChangeInput) (*domain.WorkspaceMember, error) {
	if _, err := s.GetWorkspace(ctx, in.WorkspaceID); err != nil {
		return nil, err
	}
	role := constants.WorkspaceRole(in.Role)
	var member *domain.WorkspaceMember
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := policies.ValidateMemberChange(tx, policies.ValidateMemberChangeParams{
			Op:           policies.MemberOpUpdate,
			WorkspaceID:  in.WorkspaceID,
			ActorUserID:  in.ActorID,
			ActorRole:    in.ActorRole,
			TargetUserID: in.TargetUserID,
			TargetRole:   role,
		})
		if err != nil {
			return err
		}
		from := existing.Role
		if err := tx.Model(&domain.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.TargetUserID).
			Update("role", string(role)).Error; err != nil {
			return err
		}
		existing.Role = string(role)
		member = existing
		return audit(tx, in, domain.MemberEventRoleChanged, datatypes.JSONMap{"from": from, "to": string(role)})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("workspace_id", in.WorkspaceID.String()).Str("user_id", in.TargetUserID.String()).
		Str("role", string(role)).Msg("workspaces: member role changed")
	return member, nil
}

// RemoveMember deletes a non-owner membership.
func (s *Service) RemoveMember(ctx context.Context, in MemberChangeInput) error {
	if _, err := s.GetWorkspace(ctx, in.WorkspaceID); err != nil {
		return err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := policies.ValidateMemberChange(tx, policies.ValidateMemberChangeParams{
			Op:           policies.MemberOpRemove,
			WorkspaceID:  in.WorkspaceID,
			ActorUserID:  in.ActorID,
			ActorRole:    in.ActorRole,
			TargetUserID: in.TargetUserID,
		})
		if err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.TargetUserID).
			Delete(&domain.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return audit(tx, in, domain.MemberEventRemoved, datatypes.JSONMap{"role": existing.Role})
	})
	if err != nil {
		return err
	}
	log.Info().Str("workspace_id", in.WorkspaceID.String()).Str("user_id", in.TargetUserID.String()).
		Msg("workspaces: member removed")
	return nil
}

// ListAudit returns the membership change log of a workspace, newest first.
func (s *Service) ListAudit(ctx context.Context, workspaceID uuid.UUID, limit int) ([]domain.MemberAudit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []domain.MemberAudit
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func audit(tx *gorm.DB, in MemberChangeInput, event string, details datatypes.JSONMap) error {
	return tx.Create(&domain.MemberAudit{
		WorkspaceID: in.WorkspaceID,
		ActorID:     in.ActorID,
		TargetID:    in.TargetUserID,
		Event:       event,
		Details:     details,
	}).Error
}
