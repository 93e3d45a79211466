package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ClipFusion/modules/kit/errx"
)

var registerOnce sync.Once

// UseJSONFieldNames 让 validator 的字段路径使用 json 标签名（email 而不是 Email），
// 字段错误里的路径与请求体保持一致。
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
	})
}

// Bind 绑定并校验请求，失败时上报 BoundaryError 并中断，handler 直接 return 即可。
//
//	var req CreateProjectReq
//	if !middleware.Bind(c, &req) {
//		return
//	}
func Bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		_ = c.Error(errx.FromBinding(err))
		c.Abort()
		return false
	}
	return true
}
