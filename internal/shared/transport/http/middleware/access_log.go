package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"ClipFusion/internal/shared/transport"
	"ClipFusion/modules/kit/logx"
)

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(data []byte) (int, error) {
	_, _ = w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	_, _ = w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// AccessLog 统一写访问日志。错误码优先取错误分发时记录的值，
// 其次尝试从失败响应体的 `code` 字段提取（绕过分发直接写响应的 handler）。
func AccessLog(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx := transport.NewContextWithParent(c.Request.Context(), c.Request.Method, route)
		c.Request = c.Request.WithContext(ctx)

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = bw

		c.Next()

		status := bw.Status()
		transport.SetStatus(ctx, status)
		if status >= http.StatusBadRequest {
			if code, ok := parseErrorCode(bw.body.Bytes()); ok {
				transport.SetErrorCode(ctx, code)
			}
		}
		transport.WriteAccessLog(ctx, log)
	}
}

func parseErrorCode(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}

	// 统一错误响应体格式：{"code":"NOT_FOUND", "message": ...}
	var payload struct {
		Code *string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Code == nil {
		return "", false
	}
	return *payload.Code, true
}
