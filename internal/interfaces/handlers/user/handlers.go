package user

import (
	"errors"

	"pm-backend/internal/application/identity"
	upolicies "pm-backend/internal/application/policies/user"
	wspolicies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/constants"
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds the identity service for org role management.
type Handlers struct {
	Identity *identity.Service
}

// UpdateRoleRequest body: user_id, role.
type UpdateRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/update-role. The actor's org role is re-read, not taken from the session.
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	if req.UserID == "" || req.Role == "" {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	su := middleware.GetUser(c)
	if su == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	actorID, err := su.ID()
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	actor, err := h.Identity.LoadActor(c.UserContext(), actorID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return response.Unauthorized(c, "Unauthorized")
		}
		if errors.Is(err, identity.ErrUnknownOrgRole) {
			return response.Forbidden(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	actorRole := actor.OrgRole
	if wspolicies.IsOrgAdmin(*actor) {
		actorRole = constants.OrgRoleAdmin
	}
	u, err := h.Identity.UpdateOrgRole(c.UserContext(), identity.UpdateOrgRoleInput{
		ActorUserID:  su.UserID,
		ActorRole:    actorRole,
		TargetUserID: req.UserID,
		TargetRole:   req.Role,
	})
	if err != nil {
		return mapUpdateRoleError(c, err)
	}
	return response.Success(c, "User role updated successfully", fiber.Map{"user": u}, nil)
}

func mapUpdateRoleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, constants.ErrInvalidOrgRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, upolicies.ErrOnlyAdminsCanAssignOrgRoles):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, upolicies.ErrTargetUserNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, upolicies.ErrUsersCannotModifyTheirOwnRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, upolicies.ErrOrgMustHaveAtLeastOneAdmin):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
