package constants

// Redis key prefixes shared by the session middleware and session invalidation.
const (
	SessionRedisPrefix = "session:"
	UserSessionsPrefix = "user_sessions:"
)
