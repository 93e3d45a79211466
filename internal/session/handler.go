// Package session 提供登录态相关的 HTTP 接口：查询当前身份、注销（吊销令牌）。
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/security"
	"ClipFusion/internal/shared/transport/http/middleware"
	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/tracex"
)

type Module struct {
	tokens *security.Tokens
	guards []gin.HandlerFunc
}

// New 的 guards 挂在 Auth 之后执行，此时请求上下文里已经有 user_id（例如按用户限流）。
func New(tokens *security.Tokens, guards ...gin.HandlerFunc) *Module {
	return &Module{tokens: tokens, guards: guards}
}

func (m *Module) HttpRegister(g *gin.RouterGroup) {
	handlers := append([]gin.HandlerFunc{middleware.Auth(m.tokens)}, m.guards...)
	auth := g.Group("/auth", handlers...)
	auth.GET("/me", m.me)
	auth.POST("/logout", m.logout)
}

type meResp struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	RequestID string `json:"request_id"`
}

func (m *Module) me(c *gin.Context) {
	rec := tracex.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, meResp{UserID: rec.UserID, TenantID: rec.TenantID, RequestID: rec.RequestID})
}

// logout 吊销当前令牌并删除刷新会话。
func (m *Module) logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		_ = c.Error(errx.Unauthorized(""))
		return
	}
	ctx := c.Request.Context()
	if err := m.tokens.Revoke(ctx, claims); err != nil {
		_ = c.Error(err)
		return
	}
	if err := m.tokens.DropRefreshSession(ctx, claims.UserID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
