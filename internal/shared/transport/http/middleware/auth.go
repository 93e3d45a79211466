package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/security"
	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/tracex"
)

const claimsKey = "auth.claims"

// Auth 校验 Bearer 令牌（签名、有效期、黑名单），通过后把 user_id/tenant_id 绑定到 tracex。
func Auth(tokens *security.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			_ = c.Error(errx.Unauthorized("缺少访问令牌"))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		claims, err := tokens.Authenticate(ctx, raw)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		opts := []tracex.Option{tracex.WithUserID(claims.UserID)}
		if claims.TenantID != "" {
			opts = append(opts, tracex.WithTenantID(claims.TenantID))
		}
		tracex.Bind(ctx, opts...)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom 读取 Auth 中间件写入的令牌声明。
func ClaimsFrom(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
