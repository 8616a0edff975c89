package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request counters. Exported for the health service.
const (
	KeyReqTotal  = "health:pm:req_total"
	KeyReqErrors = "health:pm:req_errors"
	KeyReqDenied = "health:pm:req_denied"
	KeyResTime   = "health:pm:res_time_total"
	KeyResCount  = "health:pm:res_count"
	KeyStartTime = "health:pm:start_time"
	KeyLastReq   = "health:pm:last_request"
)

// HealthMarker records request stats in Redis (skip /, /health*, favicon).
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   start,
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := context.Background()
		_, _ = rdb.Set(ctx, KeyLastReq, b, 0).Result()
		_, _ = rdb.Incr(ctx, KeyReqTotal).Result()

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		_, _ = rdb.Incr(ctx, KeyResCount).Result()
		_, _ = rdb.IncrByFloat(ctx, KeyResTime, float64(ms)).Result()
		switch status := c.Response().StatusCode(); {
		case status >= 500:
			_, _ = rdb.Incr(ctx, KeyReqErrors).Result()
		case status == fiber.StatusForbidden:
			_, _ = rdb.Incr(ctx, KeyReqDenied).Result()
		}
		return err
	}
}
