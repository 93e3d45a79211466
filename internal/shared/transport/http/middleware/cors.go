package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Cors 按配置的来源放行跨域请求，"*" 表示任意来源。
// 允许携带凭证，所以 "*" 不直接写入响应头，而是回写请求的 Origin。
func Cors(allowOrigins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type", HeaderRequestID, HeaderTenantID},
		ExposeHeaders:    []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}

	allowAll := false
	for _, o := range allowOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			conf.AllowOrigins = append(conf.AllowOrigins, o)
		}
	}
	if allowAll || len(conf.AllowOrigins) == 0 {
		conf.AllowOrigins = nil
		conf.AllowOriginFunc = func(string) bool { return allowAll }
	}
	return cors.New(conf)
}
