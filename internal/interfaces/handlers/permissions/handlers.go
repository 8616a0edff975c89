package permissions

import (
	"errors"

	"pm-backend/internal/application/access"
	"pm-backend/internal/application/identity"
	"pm-backend/internal/application/workspaces"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/constants"
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves permission checks and org-role grant management.
type Handlers struct {
	Access   *access.Service
	Identity *identity.Service
}

// CheckRequest body. UserID defaults to the caller; checking someone else needs org admin.
type CheckRequest struct {
	Module      string  `json:"module"`
	Action      string  `json:"action"`
	WorkspaceID *string `json:"workspace_id"`
	UserID      *string `json:"user_id"`
}

// Check POST /api/v1/pm/permissions/check: returns the decision and the rule that made it.
func (h *Handlers) Check(c *fiber.Ctx) error {
	var req CheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "module and action are required", fiber.StatusBadRequest, nil)
	}
	if req.Module == "" || req.Action == "" {
		return response.Error(c, "module and action are required", fiber.StatusBadRequest, nil)
	}
	if !constants.IsValidModule(req.Module) {
		return response.Error(c, identity.ErrInvalidModule.Error(), fiber.StatusBadRequest, nil)
	}
	if !constants.IsValidAction(req.Action) {
		return response.Error(c, identity.ErrInvalidAction.Error(), fiber.StatusBadRequest, nil)
	}

	caller := middleware.GetUser(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	subject := caller.UserID
	if req.UserID != nil && *req.UserID != "" && *req.UserID != caller.UserID {
		if caller.WorkspaceScope != "" || caller.OrgRole != string(constants.OrgRoleAdmin) {
			return response.Forbidden(c, "Only organization admins can check other users")
		}
		subject = *req.UserID
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	var wsID *uuid.UUID
	if req.WorkspaceID != nil && *req.WorkspaceID != "" {
		id, err := uuid.Parse(*req.WorkspaceID)
		if err != nil {
			return response.NotFound(c, workspaces.ErrWorkspaceNotFound.Error())
		}
		wsID = &id
	}
	if caller.WorkspaceScope != "" && (wsID == nil || wsID.String() != caller.WorkspaceScope) {
		return response.Forbidden(c, "User is Forbidden from performing this action")
	}

	d, err := h.Access.Check(c.UserContext(), userID, wsID, req.Module, req.Action)
	if err != nil {
		return mapAccessError(c, err)
	}
	return response.Success(c, "Permission evaluated", fiber.Map{"decision": d}, nil)
}

// ListGrants GET /api/v1/pm/permissions/grants?role=
func (h *Handlers) ListGrants(c *fiber.Ctx) error {
	rows, err := h.Identity.ListGrants(c.UserContext(), c.Query("role"))
	if err != nil {
		if errors.Is(err, constants.ErrInvalidOrgRole) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Permission grants", fiber.Map{"grants": rows}, fiber.Map{"count": len(rows)})
}

// Grant POST /api/v1/pm/permissions/grants. 201 when created, 200 when it already existed.
func (h *Handlers) Grant(c *fiber.Ctx) error {
	var in identity.GrantInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "role, module and action are required", fiber.StatusBadRequest, nil)
	}
	row, created, err := h.Identity.GrantPermission(c.UserContext(), in)
	if err != nil {
		return mapGrantError(c, err)
	}
	if created {
		return response.SuccessCreated(c, "Permission granted", fiber.Map{"grant": row}, nil)
	}
	return response.Success(c, "Permission already granted", fiber.Map{"grant": row}, nil)
}

// Revoke DELETE /api/v1/pm/permissions/grants
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	var in identity.GrantInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "role, module and action are required", fiber.StatusBadRequest, nil)
	}
	if err := h.Identity.RevokePermission(c.UserContext(), in); err != nil {
		return mapGrantError(c, err)
	}
	return response.Success(c, "Permission revoked", nil, nil)
}

func mapGrantError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, constants.ErrInvalidOrgRole),
		errors.Is(err, identity.ErrInvalidModule),
		errors.Is(err, identity.ErrInvalidAction):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, identity.ErrGrantNotFound):
		return response.NotFound(c, err.Error())
	default:
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("permissions: grant store failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

func mapAccessError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, workspaces.ErrWorkspaceNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, identity.ErrUnknownOrgRole):
		return response.Forbidden(c, err.Error())
	default:
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("permissions: check failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
