package middleware

import (
	"context"
	"errors"

	"pm-backend/internal/application/identity"
	"pm-backend/internal/application/workspaces"
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WorkspaceParam is the route parameter that scopes a permission check.
const WorkspaceParam = "workspace_id"

const forbiddenMessage = "User is Forbidden from performing this action"

// PermissionChecker answers whether a user may perform module:action, optionally inside a workspace.
type PermissionChecker interface {
	Allowed(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID, module, action string) (bool, error)
}

// RequirePMPermission resolves the caller's effective workspace role and checks module:action.
// Routes without :workspace_id are checked at org level.
func RequirePMPermission(checker PermissionChecker, module, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		userID, err := user.ID()
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}

		var wsID *uuid.UUID
		if raw := c.Params(WorkspaceParam); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return response.NotFound(c, workspaces.ErrWorkspaceNotFound.Error())
			}
			wsID = &id
		}
		if !inWorkspaceScope(user, wsID) {
			return response.Forbidden(c, forbiddenMessage)
		}

		ok, err := checker.Allowed(c.UserContext(), userID, wsID, module, action)
		switch {
		case errors.Is(err, workspaces.ErrWorkspaceNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, identity.ErrUserNotFound):
			return response.Unauthorized(c, "Unauthorized")
		case errors.Is(err, identity.ErrUnknownOrgRole):
			return response.Forbidden(c, err.Error())
		case err != nil:
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("module", module).Str("action", action).Msg("permission check failed")
			return response.Error(c, "Authorization error", fiber.StatusInternalServerError, nil)
		}
		if !ok {
			return response.Forbidden(c, forbiddenMessage)
		}
		return c.Next()
	}
}

// RequireWorkspaceScope holds integration tokens to the workspace they were issued for.
// Session users pass; scoped callers are refused on routes without a matching :workspace_id.
func RequireWorkspaceScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		var wsID *uuid.UUID
		if id, err := uuid.Parse(c.Params(WorkspaceParam)); err == nil {
			wsID = &id
		}
		if !inWorkspaceScope(user, wsID) {
			return response.Forbidden(c, forbiddenMessage)
		}
		return c.Next()
	}
}

func inWorkspaceScope(user *SessionUser, wsID *uuid.UUID) bool {
	if user.WorkspaceScope == "" {
		return true
	}
	return wsID != nil && wsID.String() == user.WorkspaceScope
}
