package logx

import (
	"context"

	"ClipFusion/modules/kit/tracex"

	"go.uber.org/zap"
)

// ZapLogger 是 zap 的适配器，实现 logx.Logger，便于各服务复用。
//
// WithContext 只记住 ctx，真正读取 tracex 记录发生在每次输出时，
// 这样作用域内后绑定的 user_id 等字段也能出现在之后的日志里。
type ZapLogger struct {
	logger *zap.Logger
	ctx    context.Context
}

func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		return &ZapLogger{logger: zap.NewNop()}
	}
	return &ZapLogger{logger: l.WithOptions(zap.AddCallerSkip(1))}
}

func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	if z == nil {
		return NewZapLogger(nil)
	}
	return &ZapLogger{logger: z.logger, ctx: ctx}
}

func (z *ZapLogger) Component(name string) Logger {
	if z == nil {
		return NewZapLogger(nil)
	}
	return &ZapLogger{logger: z.logger.With(Component(name)), ctx: z.ctx}
}

func (z *ZapLogger) Info(msg string, fields ...zap.Field) {
	z.logger.Info(msg, z.merge(fields)...)
}

func (z *ZapLogger) Error(msg string, fields ...zap.Field) {
	z.logger.Error(msg, z.merge(fields)...)
}

func (z *ZapLogger) Debug(msg string, fields ...zap.Field) {
	z.logger.Debug(msg, z.merge(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...zap.Field) {
	z.logger.Warn(msg, z.merge(fields)...)
}

// merge 在输出时刻合并 tracex 快照；"-" 表示未绑定，不写入。
func (z *ZapLogger) merge(fields []zap.Field) []zap.Field {
	if z.ctx == nil {
		return fields
	}
	rec := tracex.Snapshot(z.ctx)
	out := make([]zap.Field, 0, len(fields)+3)
	if rec.TenantID != tracex.Unset {
		out = append(out, zap.String(FieldTenantID, rec.TenantID))
	}
	if rec.UserID != tracex.Unset {
		out = append(out, zap.String(FieldUserID, rec.UserID))
	}
	if rec.RequestID != tracex.Unset {
		out = append(out, zap.String(FieldRequestID, rec.RequestID))
	}
	return append(out, fields...)
}
