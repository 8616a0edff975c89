package workspaces

import (
	"context"
	"errors"
	"strings"

	policies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"
	"pm-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the workspace membership store plus workspace CRUD.
type Service struct {
	DB *gorm.DB
}

// CreateWorkspaceInput is the create-workspace payload.
type CreateWorkspaceInput struct {
	Name        string                 `json:"name"`
	Key         string                 `json:"key"`
	Description *string                `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
}

// CreateWorkspace creates a workspace and makes the creator its owner in one transaction.
// This is the only place the owner role is assigned.
func (s *Service) CreateWorkspace(ctx context.Context, creatorID uuid.UUID, in CreateWorkspaceInput) (*domain.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	key := strings.ToUpper(strings.TrimSpace(in.Key))
	if !validation.IsValidWorkspaceKey(key) {
		return nil, ErrInvalidKey
	}

	ws := &domain.Workspace{
		Name:        name,
		Key:         key,
		Description: in.Description,
		Settings:    datatypes.JSONMap(in.Settings),
		CreatedBy:   creatorID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Workspace{}).Where("workspace_key = ?", key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrKeyTaken
		}
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(&domain.WorkspaceMember{
			WorkspaceID: ws.WorkspaceID,
			UserID:      creatorID,
			Role:        string(constants.WorkspaceRoleOwner),
			AddedBy:     creatorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("workspace_id", ws.WorkspaceID.String()).Str("key", ws.Key).
		Str("owner_id", creatorID.String()).Msg("workspaces: created")
	return ws, nil
}

// GetWorkspace returns one workspace.
func (s *Service) GetWorkspace(ctx context.Context, workspaceID uuid.UUID) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", workspaceID).First(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// WorkspaceWithRole is a list entry: the workspace, the caller's stored membership role
// (empty if none) and the effective role the resolver grants there.
type WorkspaceWithRole struct {
	domain.Workspace
	StoredRole string `json:"stored_role"`
	MyRole     string `json:"my_role"`
}

// ListForUser returns the workspaces userID belongs to, or every workspace when seeAll is set.
// MyRole is resolved from orgRole and the stored membership, so org admins and po see admin
// on workspaces they never joined.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, orgRole constants.OrgRole, seeAll bool) ([]WorkspaceWithRole, error) {
	var memberships []domain.WorkspaceMember
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	roles := make(map[uuid.UUID]constants.WorkspaceRole, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		role, err := constants.ParseWorkspaceRole(m.Role)
		if err != nil {
			role = constants.WorkspaceRoleNone
		}
		roles[m.WorkspaceID] = role
		ids = append(ids, m.WorkspaceID)
	}

	out := []WorkspaceWithRole{}
	if !seeAll && len(ids) == 0 {
		return out, nil
	}
	q := s.DB.WithContext(ctx).Order("created_at ASC")
	if !seeAll {
		q = q.Where("workspace_id IN ?", ids)
	}
	var list []domain.Workspace
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	for _, ws := range list {
		stored := roles[ws.WorkspaceID]
		out = append(out, WorkspaceWithRole{
			Workspace:  ws,
			StoredRole: string(stored),
			MyRole:     string(policies.GetEffectiveWorkspaceRole(orgRole, stored)),
		})
	}
	return out, nil
}

// UpdateWorkspace updates allowed fields (name, description, settings).
func (s *Service) UpdateWorkspace(ctx context.Context, workspaceID uuid.UUID, fields map[string]interface{}) (*domain.Workspace, error) {
	if len(fields) == 0 {
		return nil, ErrNoUpdateFields
	}
	valid := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "name":
			name, _ := v.(string)
			if strings.TrimSpace(name) == "" {
				return nil, ErrNameRequired
			}
			valid["name"] = strings.TrimSpace(name)
		case "description":
			valid["description"] = v
		case "settings":
			m, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			valid["settings"] = datatypes.JSONMap(m)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidUpdateFields
	}
	res := s.DB.WithContext(ctx).Model(&domain.Workspace{}).Where("workspace_id = ?", workspaceID).Updates(valid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrWorkspaceNotFound
	}
	return s.GetWorkspace(ctx, workspaceID)
}

// DeleteWorkspace removes the workspace and all of its memberships.
func (s *Service) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("workspace_id = ?", workspaceID).Delete(&domain.Workspace{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrWorkspaceNotFound
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&domain.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Where("workspace_id = ?", workspaceID).Delete(&domain.MemberAudit{}).Error
	})
}
