package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/transport"
	"ClipFusion/modules/kit/logx"
)

// Errors 把 handler 通过 c.Error 上报的最后一个错误、以及 panic，交给 transport.Dispatch 统一输出。
// handler 只负责 c.Error(err) + return，不自己拼错误响应体。
func Errors(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				respond(c, log, err)
			}
		}()

		c.Next()

		if last := c.Errors.Last(); last != nil {
			respond(c, log, last.Err)
		}
	}
}

func respond(c *gin.Context, log logx.Logger, err error) {
	status, body := transport.Dispatch(c.Request.Context(), log, err)
	if c.Writer.Written() {
		// 响应已经开始写出，只能保留日志
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, body)
}
