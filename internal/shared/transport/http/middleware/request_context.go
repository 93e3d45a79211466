package middleware

import (
	"github.com/gin-gonic/gin"

	"ClipFusion/modules/kit/tracex"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// RequestContext 为每个请求打开 tracex 作用域：
// 绑定 request_id（沿用客户端传入的值，否则生成）与 tenant_id，并在响应头回写 request_id。
// 请求结束（包括 panic）时清空。必须是最外层中间件。
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, release := tracex.Begin(c.Request.Context())
		defer release()

		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = tracex.NewRequestID()
		}
		tracex.Bind(ctx,
			tracex.WithRequestID(rid),
			tracex.WithTenantID(c.GetHeader(HeaderTenantID)),
		)
		c.Header(HeaderRequestID, rid)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
