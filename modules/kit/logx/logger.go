package logx

import (
	"context"

	"go.uber.org/zap"
)

// 已知字段名：行格式编码器按这个顺序输出。
const (
	FieldTenantID  = "tenant_id"
	FieldUserID    = "user_id"
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldParams    = "params"
	FieldDuration  = "duration"
)

// Logger 是跨服务可复用的最小日志接口。
//
// 约束：
// - 保持 API 极简，避免“自研日志框架”过度设计
// - 只承载业务需要的能力：结构化字段 + ctx 透传（tenant/user/request 等）
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	WithContext(ctx context.Context) Logger
	Component(name string) Logger
}

func Component(name string) zap.Field {
	return zap.String(FieldComponent, name)
}
