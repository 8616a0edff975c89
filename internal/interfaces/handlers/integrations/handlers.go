package integrations

import (
	"errors"

	intsvc "pm-backend/internal/application/integrations"
	"pm-backend/internal/domain"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers issues integration tokens. Route is guarded by integrations:create.
type Handlers struct {
	Tokens *intsvc.TokenService
}

// IssueTokenRequest body.
type IssueTokenRequest struct {
	Label string `json:"label"`
}

// IssueToken POST /api/v1/pm/workspaces/:workspace_id/integrations/tokens
func (h *Handlers) IssueToken(c *fiber.Ctx) error {
	su := middleware.GetUser(c)
	if su == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if su.WorkspaceScope != "" {
		return response.Forbidden(c, "Integration tokens cannot issue tokens")
	}
	userID, err := su.ID()
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, err := uuid.Parse(c.Params(middleware.WorkspaceParam))
	if err != nil {
		return response.NotFound(c, "Workspace not found")
	}
	var req IssueTokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
	}
	if len(req.Label) > 64 {
		return response.Error(c, "label must be at most 64 characters", fiber.StatusBadRequest, nil)
	}

	issued, err := h.Tokens.Issue(&domain.User{
		UserID:   userID,
		Fullname: su.Fullname,
		Email:    su.Email,
		OrgRole:  su.OrgRole,
	}, wsID, req.Label)
	if err != nil {
		if errors.Is(err, intsvc.ErrSecretRequired) {
			return response.Error(c, "Integration tokens are not configured", fiber.StatusServiceUnavailable, nil)
		}
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("integrations: issue token failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	log.Info().Str("user_id", su.UserID).Str("workspace_id", wsID.String()).Str("label", req.Label).
		Time("expires_at", issued.ExpiresAt).Msg("integrations: token issued")
	return response.SuccessCreated(c, "Integration token issued", fiber.Map{"token": issued}, nil)
}
