package workspaces

import (
	"errors"
	"strconv"

	"pm-backend/internal/application/access"
	"pm-backend/internal/application/identity"
	policies "pm-backend/internal/application/policies/workspace"
	wssvc "pm-backend/internal/application/workspaces"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/constants"
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves workspace and membership endpoints. Permission checks run in
// middleware.RequirePMPermission before these handlers.
type Handlers struct {
	Service  *wssvc.Service
	Access   *access.Service
	Identity *identity.Service
}

// List GET /api/v1/pm/workspaces: the caller's workspaces, or all of them for org admin and po.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	actor, err := h.Identity.LoadActor(c.UserContext(), userID)
	if err != nil {
		return mapError(c, err)
	}
	list, err := h.Service.ListForUser(c.UserContext(), userID, actor.OrgRole, policies.SeesAllWorkspaces(*actor))
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Workspaces", fiber.Map{"workspaces": list}, fiber.Map{"count": len(list)})
}

// Create POST /api/v1/pm/workspaces: the caller becomes owner.
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var in wssvc.CreateWorkspaceInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, wssvc.ErrNameRequired.Error(), fiber.StatusBadRequest, nil)
	}
	ws, err := h.Service.CreateWorkspace(c.UserContext(), userID, in)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Workspace created successfully", fiber.Map{"workspace": ws}, nil)
}

// Get GET /api/v1/pm/workspaces/:workspace_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	ws, err := h.Service.GetWorkspace(c.UserContext(), wsID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Workspace found", fiber.Map{"workspace": ws}, nil)
}

// Update PATCH /api/v1/pm/workspaces/:workspace_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil || len(body) == 0 {
		return response.Error(c, wssvc.ErrNoUpdateFields.Error(), fiber.StatusBadRequest, nil)
	}
	ws, err := h.Service.UpdateWorkspace(c.UserContext(), wsID, body)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Workspace updated successfully", fiber.Map{"workspace": ws}, nil)
}

// Delete DELETE /api/v1/pm/workspaces/:workspace_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	if err := h.Service.DeleteWorkspace(c.UserContext(), wsID); err != nil {
		return mapError(c, err)
	}
	log.Info().Str("workspace_id", wsID.String()).Str("user_id", middleware.GetUser(c).UserID).Msg("workspaces: deleted")
	return response.Success(c, "Workspace deleted successfully", nil, nil)
}

// MyRole GET /api/v1/pm/workspaces/:workspace_id/my-role
func (h *Handlers) MyRole(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	view, err := h.Access.EffectiveRole(c.UserContext(), userID, wsID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Workspace role", fiber.Map{"role": view}, nil)
}

// ListMembers GET /api/v1/pm/workspaces/:workspace_id/members
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	members, err := h.Service.ListMembers(c.UserContext(), wsID)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Workspace members", fiber.Map{"members": members}, fiber.Map{"count": len(members)})
}

// MemberRequest body for add and update.
type MemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember POST /api/v1/pm/workspaces/:workspace_id/members
func (h *Handlers) AddMember(c *fiber.Ctx) error {
	var req MemberRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Role == "" {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	in, err := h.memberChange(c, target, req.Role)
	if err != nil {
		return mapError(c, err)
	}
	m, err := h.Service.AddMember(c.UserContext(), *in)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Member added successfully", fiber.Map{"member": m}, nil)
}

// UpdateMember PATCH /api/v1/pm/workspaces/:workspace_id/members/:user_id
func (h *Handlers) UpdateMember(c *fiber.Ctx) error {
	target, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req MemberRequest
	if err := c.BodyParser(&req); err != nil || req.Role == "" {
		return response.Error(c, "role is required", fiber.StatusBadRequest, nil)
	}
	in, err := h.memberChange(c, target, req.Role)
	if err != nil {
		return mapError(c, err)
	}
	m, err := h.Service.UpdateMemberRole(c.UserContext(), *in)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Member role updated successfully", fiber.Map{"member": m}, nil)
}

// RemoveMember DELETE /api/v1/pm/workspaces/:workspace_id/members/:user_id
func (h *Handlers) RemoveMember(c *fiber.Ctx) error {
	target, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	in, err := h.memberChange(c, target, "")
	if err != nil {
		return mapError(c, err)
	}
	if err := h.Service.RemoveMember(c.UserContext(), *in); err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Member removed successfully", nil, nil)
}

// Audit GET /api/v1/pm/workspaces/:workspace_id/audit?limit=
func (h *Handlers) Audit(c *fiber.Ctx) error {
	wsID, err := workspaceID(c)
	if err != nil {
		return response.NotFound(c, wssvc.ErrWorkspaceNotFound.Error())
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.Service.ListAudit(c.UserContext(), wsID, limit)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Membership audit", fiber.Map{"events": rows}, fiber.Map{"count": len(rows)})
}

// memberChange builds the service input with the actor's effective role in the workspace.
func (h *Handlers) memberChange(c *fiber.Ctx, target uuid.UUID, role string) (*wssvc.MemberChangeInput, error) {
	actorID, err := callerID(c)
	if err != nil {
		return nil, identity.ErrUserNotFound
	}
	wsID, err := workspaceID(c)
	if err != nil {
		return nil, wssvc.ErrWorkspaceNotFound
	}
	view, err := h.Access.EffectiveRole(c.UserContext(), actorID, wsID)
	if err != nil {
		return nil, err
	}
	return &wssvc.MemberChangeInput{
		WorkspaceID:  wsID,
		ActorID:      actorID,
		ActorRole:    view.EffectiveRole,
		TargetUserID: target,
		Role:         role,
	}, nil
}

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	u := middleware.GetUser(c)
	if u == nil {
		return uuid.Nil, identity.ErrUserNotFound
	}
	return u.ID()
}

func workspaceID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params(middleware.WorkspaceParam))
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, wssvc.ErrWorkspaceNotFound),
		errors.Is(err, policies.ErrTargetUserNotFound),
		errors.Is(err, policies.ErrMemberNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, wssvc.ErrNameRequired),
		errors.Is(err, wssvc.ErrInvalidKey),
		errors.Is(err, wssvc.ErrNoUpdateFields),
		errors.Is(err, wssvc.ErrNoValidUpdateFields),
		errors.Is(err, policies.ErrInvalidTargetRole),
		errors.Is(err, policies.ErrOwnerRoleNotAssignable),
		errors.Is(err, policies.ErrUsersCannotModifyTheirOwnMembership),
		errors.Is(err, constants.ErrInvalidWorkspaceRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, wssvc.ErrKeyTaken),
		errors.Is(err, policies.ErrUserAlreadyMember):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, policies.ErrOnlyWorkspaceAdminsCanManageMembers),
		errors.Is(err, policies.ErrWorkspaceOwnerCannotBeChanged),
		errors.Is(err, identity.ErrUnknownOrgRole):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, identity.ErrUserNotFound):
		return response.Unauthorized(c, "Unauthorized")
	default:
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("workspaces: request failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
