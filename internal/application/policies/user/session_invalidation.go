package policies

import (
	"context"

	"pm-backend/internal/pkg/constants"

	"github.com/redis/go-redis/v9"
)

// DestroyUserSessions removes every session of a user so a changed org role takes effect.
// Deletes each session key (session:<sid>) and the user_sessions:<user_id> set.
func DestroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) {
	if rdb == nil || userID == "" {
		return
	}
	key := constants.UserSessionsPrefix + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil || len(sessionIDs) == 0 {
		rdb.Del(ctx, key)
		return
	}
	for _, sid := range sessionIDs {
		rdb.Del(ctx, constants.SessionRedisPrefix+sid)
	}
	rdb.Del(ctx, key)
}
