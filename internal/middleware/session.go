package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pm-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed session cookie.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName = "pm.sid"
	sessionMaxAge     = 24 * time.Hour

	userLocal        = "user"
	sessionIDLocal   = "session_id"
	sessionDataLocal = "session_data"
)

// SessionUser is the identity stored in the session and attached to each request.
type SessionUser struct {
	UserID    string   `json:"user_id"`
	Fullname  string   `json:"fullname"`
	Email     string   `json:"email"`
	OrgRole   string   `json:"org_role"`
	RoleNames []string `json:"role_names,omitempty"`
	// WorkspaceScope is set for integration tokens: the caller may only act in this workspace.
	WorkspaceScope string `json:"workspace_scope,omitempty"`
}

// ID parses UserID.
func (u *SessionUser) ID() (uuid.UUID, error) {
	return uuid.Parse(u.UserID)
}

// IsOrgAdmin mirrors the resolver's admin rule: org role admin or the admin role name.
func (u *SessionUser) IsOrgAdmin() bool {
	if u.OrgRole == string(constants.OrgRoleAdmin) {
		return true
	}
	for _, n := range u.RoleNames {
		if n == string(constants.RoleNameAdmin) {
			return true
		}
	}
	return false
}

type sessionData struct {
	User *SessionUser `json:"user,omitempty"`
}

// NewRedisClient parses REDIS_URL into a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Session loads the session from Redis before the handler and saves it afterwards.
// Cookie value is "s:<id>"; Redis key is session:<id>.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		if strings.HasPrefix(sessionID, "s:") {
			parts := strings.SplitN(sessionID[2:], ".", 2)
			sessionID = parts[0]
		}

		data := &sessionData{}
		if sessionID != "" {
			b, err := rdb.Get(c.UserContext(), constants.SessionRedisPrefix+sessionID).Bytes()
			if err == nil {
				if err := json.Unmarshal(b, data); err != nil {
					log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("session: discarding unreadable session")
					data = &sessionData{}
				}
			}
		}

		c.Locals(sessionDataLocal, data)
		if data.User != nil {
			c.Locals(userLocal, data.User)
		}
		c.Locals(sessionIDLocal, sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		sid, _ := c.Locals(sessionIDLocal).(string)
		updated, _ := c.Locals(sessionDataLocal).(*sessionData)
		if sid != "" && updated != nil && updated.User != nil {
			b, _ := json.Marshal(updated)
			rdb.Set(context.Background(), constants.SessionRedisPrefix+sid, b, sessionMaxAge)
		}
		return nil
	}
}

// GetSessionID returns the current session ID from context (for login/logout).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// SetSessionUser sets the user in the session and marks session for save.
// Call RegenerateSessionID first to get a new id.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals(sessionDataLocal).(*sessionData)
	if data == nil {
		data = &sessionData{}
	}
	data.User = &user
	c.Locals(sessionDataLocal, data)
	c.Locals(userLocal, data.User)
}

// RegenerateSessionID creates a new session ID and sets it in Locals (cookie set by handler).
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession clears user and session data from Locals; caller must clear cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, &sessionData{})
	c.Locals(userLocal, nil)
}

// SessionCookieConfig returns cookie options for SetCookie/ClearCookie.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	secure := cfg.IsProduction || cfg.AllowCrossSiteDev
	return fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
