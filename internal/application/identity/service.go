package identity

import (
	"context"
	"errors"

	"pm-backend/internal/application/policies/user"
	wspolicies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the org-role store: users, their org roles and the grants attached to each role.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
	// StrictRoles refuses users whose stored org role is unrecognized instead of
	// resolving them through constants.OrgRoleUnknown.
	StrictRoles bool
}

// LoadActor reads the user's org role, role names and grants. Nothing is cached.
func (s *Service) LoadActor(ctx context.Context, userID uuid.UUID) (*wspolicies.Actor, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	orgRole, err := constants.ParseOrgRole(u.OrgRole)
	if err != nil {
		if s.StrictRoles {
			log.Warn().Str("user_id", userID.String()).Str("org_role", u.OrgRole).
				Msg("identity: refusing user with unrecognized org role")
			return nil, ErrUnknownOrgRole
		}
		log.Warn().Str("user_id", userID.String()).Str("org_role", u.OrgRole).
			Msg("identity: unrecognized org role, resolving as unknown (workspace member)")
		orgRole = constants.OrgRoleUnknown
	}

	grants, err := s.GrantsForRole(ctx, orgRole)
	if err != nil {
		return nil, err
	}
	return &wspolicies.Actor{
		OrgRole:   orgRole,
		Grants:    grants,
		RoleNames: u.AuxRoleNames(),
	}, nil
}

// GrantsForRole returns the (module, action) grants bound to an org role.
func (s *Service) GrantsForRole(ctx context.Context, role constants.OrgRole) ([]wspolicies.Grant, error) {
	if !role.IsValid() {
		return nil, nil
	}
	var rows []domain.RolePermission
	if err := s.DB.WithContext(ctx).Where("role = ?", string(role)).
		Order("module ASC, action ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	grants := make([]wspolicies.Grant, 0, len(rows))
	for _, r := range rows {
		grants = append(grants, wspolicies.Grant{Module: r.Module, Action: r.Action})
	}
	return grants, nil
}

// ListGrants returns grant rows, all roles when role is empty.
func (s *Service) ListGrants(ctx context.Context, role string) ([]domain.RolePermission, error) {
	q := s.DB.WithContext(ctx).Model(&domain.RolePermission{})
	if role != "" {
		if _, err := constants.ParseOrgRole(role); err != nil {
			return nil, err
		}
		q = q.Where("role = ?", role)
	}
	var rows []domain.RolePermission
	if err := q.Order("role ASC, module ASC, action ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GrantInput names one grant.
type GrantInput struct {
	Role   string `json:"role"`
	Module string `json:"module"`
	Action string `json:"action"`
}

func (in GrantInput) validate() error {
	if _, err := constants.ParseOrgRole(in.Role); err != nil {
		return err
	}
	if !constants.IsValidModule(in.Module) {
		return ErrInvalidModule
	}
	if !constants.IsValidAction(in.Action) {
		return ErrInvalidAction
	}
	return nil
}

// GrantPermission adds a grant. Granting an existing grant returns it with created=false.
func (s *Service) GrantPermission(ctx context.Context, in GrantInput) (*domain.RolePermission, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}
	var existing domain.RolePermission
	err := s.DB.WithContext(ctx).
		Where("role = ? AND module = ? AND action = ?", in.Role, in.Module, in.Action).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	row := domain.RolePermission{Role: in.Role, Module: in.Module, Action: in.Action}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, false, err
	}
	log.Info().Str("role", in.Role).Str("module", in.Module).Str("action", in.Action).Msg("identity: permission granted")
	return &row, true, nil
}

// RevokePermission deletes a grant.
func (s *Service) RevokePermission(ctx context.Context, in GrantInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).
		Where("role = ? AND module = ? AND action = ?", in.Role, in.Module, in.Action).
		Delete(&domain.RolePermission{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	log.Info().Str("role", in.Role).Str("module", in.Module).Str("action", in.Action).Msg("identity: permission revoked")
	return nil
}

// UpdateOrgRoleInput carries an org role change request.
type UpdateOrgRoleInput struct {
	ActorUserID  string
	ActorRole    constants.OrgRole
	TargetUserID string
	TargetRole   string
}

// UpdateOrgRole changes a user's org role after policy checks and destroys their sessions.
func (s *Service) UpdateOrgRole(ctx context.Context, in UpdateOrgRoleInput) (*domain.User, error) {
	targetRole, err := constants.ParseOrgRole(in.TargetRole)
	if err != nil {
		return nil, err
	}
	target, err := policies.ValidateOrgRoleAssignment(s.DB.WithContext(ctx), policies.ValidateOrgRoleAssignmentParams{
		ActorRole:    in.ActorRole,
		TargetRole:   targetRole,
		ActorUserID:  in.ActorUserID,
		TargetUserID: in.TargetUserID,
	})
	if err != nil {
		return nil, err
	}
	from := target.OrgRole
	target.OrgRole = string(targetRole)
	if err := s.DB.WithContext(ctx).Save(target).Error; err != nil {
		return nil, err
	}
	policies.DestroyUserSessions(ctx, s.Rdb, in.TargetUserID)
	log.Info().Str("actor_id", in.ActorUserID).Str("user_id", in.TargetUserID).
		Str("from", from).Str("to", target.OrgRole).Msg("identity: org role changed")
	return target, nil
}
