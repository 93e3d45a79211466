package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ClipFusion/modules/kit/logx"
)

// AccessLog 是请求级访问日志上下文：中间件创建，错误分发时补充错误码，请求结束时输出。
type AccessLog struct {
	Status    int
	ErrorCode string
	startTime time.Time
	method    string
	path      string
}

type accessLogKey struct{}

// NewContextWithParent 创建带 AccessLog 的新 context（保留父 context 的取消/超时信号）。
func NewContextWithParent(parent context.Context, method, path string) context.Context {
	ctx := parent
	if ctx == nil {
		ctx = context.Background()
	}
	al := &AccessLog{
		startTime: time.Now(),
		method:    method,
		path:      path,
	}
	return context.WithValue(ctx, accessLogKey{}, al)
}

// FromContext 从 context 读取 AccessLog。
func FromContext(ctx context.Context) *AccessLog {
	if ctx == nil {
		return nil
	}
	al, _ := ctx.Value(accessLogKey{}).(*AccessLog)
	return al
}

// Path 返回请求路由，没有 AccessLog 时为空。
func Path(ctx context.Context) string {
	if al := FromContext(ctx); al != nil {
		return al.path
	}
	return ""
}

func SetStatus(ctx context.Context, status int) {
	if al := FromContext(ctx); al != nil {
		al.Status = status
	}
}

// SetErrorCode 设置对外错误码（失败场景），已设置时不覆盖。
func SetErrorCode(ctx context.Context, code string) {
	if code == "" {
		return
	}
	if al := FromContext(ctx); al != nil && al.ErrorCode == "" {
		al.ErrorCode = code
	}
}

// WriteAccessLog 输出访问日志（建议在中间件 defer 调用）。
func WriteAccessLog(ctx context.Context, log logx.Logger) {
	al := FromContext(ctx)
	if al == nil || log == nil {
		return
	}
	logx.ReportAccessWithLoggerContext(ctx, log, logx.AccessLog{
		Method:    al.method,
		Path:      al.path,
		Status:    al.Status,
		ErrorCode: al.ErrorCode,
	}, zap.Duration(logx.FieldDuration, time.Since(al.startTime)))
}
