package middleware

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/internal/shared/ratelimit"
	"ClipFusion/modules/kit/tracex"
)

// RateLimit 按 scope 做固定窗口限流：已登录按 user_id 计数，否则按客户端 IP。
// 要按用户计数必须挂在 Auth 之后，之前 user_id 还没有写入上下文。
// 缓存故障时放行（故障已由缓存客户端记录），限流不应成为可用性的单点。
func RateLimit(l *ratelimit.Limiter, scope string, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := tracex.Snapshot(ctx).UserID
		if id == tracex.Unset {
			id = c.ClientIP()
		}

		d, err := l.Allow(ctx, scope, id, limit)
		if err != nil {
			var ce *cache.Error
			if errors.As(err, &ce) {
				c.Next()
				return
			}
			if d.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
