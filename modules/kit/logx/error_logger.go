package logx

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AccessLog 是访问日志的强类型输入，避免参数顺序误传。
type AccessLog struct {
	Method    string
	Path      string
	Status    int
	ErrorCode string
}

// BizLog 是业务拒绝日志的强类型输入。
type BizLog struct {
	Component string
	Action    string
	Err       error
}

// SysLog 是技术错误日志的强类型输入。
type SysLog struct {
	Component string
	Action    string
	Err       error
}

func NewBizLog(component, action string, err error) BizLog {
	return BizLog{Component: component, Action: action, Err: err}
}

func NewSysLog(component, action string, err error) SysLog {
	return SysLog{Component: component, Action: action, Err: err}
}

// ReportAccessWithLoggerContext 记录访问日志：
// - status < 400: INFO
// - status 400~499: WARN
// - status >= 500: ERROR
func ReportAccessWithLoggerContext(ctx context.Context, l Logger, al AccessLog, fields ...zap.Field) {
	if l == nil {
		return
	}
	base := []zap.Field{
		Component("http"),
		zap.String(FieldMethod, al.Method),
		zap.String(FieldPath, al.Path),
		zap.Int(FieldStatus, al.Status),
	}
	if al.ErrorCode != "" {
		base = append(base, zap.String(FieldError, al.ErrorCode))
	}
	base = append(base, fields...)
	withCtx := l.WithContext(ctx)
	switch {
	case al.Status >= http.StatusInternalServerError:
		withCtx.Error("access", base...)
	case al.Status >= http.StatusBadRequest:
		withCtx.Warn("access", base...)
	default:
		withCtx.Info("access", base...)
	}
}

// ReportBizWithLoggerContext 记录业务拒绝日志：WARN、err_type=biz、不带堆栈。
func ReportBizWithLoggerContext(ctx context.Context, l Logger, biz BizLog, fields ...zap.Field) {
	if l == nil || biz.Err == nil {
		return
	}
	action := biz.Action
	if action == "" {
		action = "biz_reject"
	}
	meta := BuildErrorLog(biz.Err)

	base := []zap.Field{
		zap.String("err_type", "biz"),
		zap.String("action", action),
	}
	if biz.Component != "" {
		base = append(base, Component(biz.Component))
	}
	if meta.Status != 0 {
		base = append(base, zap.Int(FieldStatus, meta.Status))
	}
	base = append(base, zap.String(FieldError, fmt.Sprintf("[%s : %s]", meta.Code, meta.Msg)))
	if len(meta.Data) != 0 {
		base = append(base, zap.Any("error_data", meta.Data))
	}
	base = append(base, fields...)
	l.WithContext(ctx).Warn(action, base...)
}

// ReportSysErrorWithLoggerContext 记录技术错误日志：ERROR、err_type=sys，附带 cause 链与发生处栈。
func ReportSysErrorWithLoggerContext(ctx context.Context, l Logger, sys SysLog, fields ...zap.Field) {
	if sys.Err == nil || l == nil {
		return
	}
	action := sys.Action
	if action == "" {
		action = "sys_error"
	}
	meta := BuildErrorLog(sys.Err)

	base := []zap.Field{
		zap.String("err_type", "sys"),
		zap.String("action", action),
		zap.String("error_type", meta.Type),
	}
	if sys.Component != "" {
		base = append(base, Component(sys.Component))
	}
	if meta.Code != "" {
		base = append(base, zap.String("error_code", meta.Code))
	}
	if len(meta.CauseChain) != 0 {
		base = append(base, zap.Strings("cause_chain", meta.CauseChain))
	}
	if len(meta.Data) != 0 {
		base = append(base, zap.Any("error_data", meta.Data))
	}
	if meta.Origin != "" {
		base = append(base, zap.String("origin_caller", meta.Origin))
	}
	if meta.Stack != "" {
		base = append(base, zap.String(stackField, meta.Stack))
	}
	base = append(base, zap.String(FieldError, meta.Error))
	base = append(base, fields...)

	finalMsg := action
	if meta.Msg != "" {
		finalMsg = fmt.Sprintf("%s, msg:%s", action, meta.Msg)
	}
	l.WithContext(ctx).Error(finalMsg, base...)
}
