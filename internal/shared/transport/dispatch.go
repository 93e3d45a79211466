package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/logx"
)

// 基础设施与未知错误的对外错误码。
const (
	CodeCacheError    = "cache_error"
	CodeInternalError = "internal_error"

	internalErrorMessage = "Internal server error"
)

// Dispatch 是系统边界上唯一的错误出口：按错误类型选择日志级别与响应体。
// 每个错误只记录一次日志、只生成一个响应体；内部 cause 与栈只进日志。
//
//	*errx.Error         -> WARN  server_error  -> {code, message}          @ kind 状态码
//	*errx.BoundaryError -> WARN  api           -> {code, message, detail}  @ 422
//	*cache.Error        -> ERROR redis_error   -> {cache_error, message}   @ 500
//	其他                -> ERROR generic_error -> {internal_error, ...}    @ 500
func Dispatch(ctx context.Context, log logx.Logger, err error) (int, any) {
	if err == nil {
		return http.StatusOK, nil
	}
	if log == nil {
		log = logx.NewZapLogger(nil)
	}
	extra := pathFields(ctx)

	var se *errx.Error
	if errors.As(err, &se) {
		SetErrorCode(ctx, se.CodeText())
		logx.ReportBizWithLoggerContext(ctx, log, logx.NewBizLog("server_error", "服务层异常", se),
			append(extra, zap.String("kind", se.Kind().String()))...)
		return se.Status(), se.Envelope()
	}

	var be *errx.BoundaryError
	if errors.As(err, &be) {
		SetErrorCode(ctx, be.CodeText())
		log.WithContext(ctx).Warn("请求验证失败", append(extra,
			logx.Component("api"),
			zap.Int(logx.FieldStatus, be.Status()),
			zap.Any("errors", be.Fields()),
		)...)
		return be.Status(), be.Envelope()
	}

	var ce *cache.Error
	if errors.As(err, &ce) {
		SetErrorCode(ctx, CodeCacheError)
		logx.ReportSysErrorWithLoggerContext(ctx, log, logx.NewSysLog("redis_error", "Redis 异常", withStack(err)),
			append(extra, zap.Int(logx.FieldStatus, http.StatusInternalServerError))...)
		return http.StatusInternalServerError, errx.Envelope{Code: CodeCacheError, Message: ce.Msg()}
	}

	SetErrorCode(ctx, CodeInternalError)
	logx.ReportSysErrorWithLoggerContext(ctx, log, logx.NewSysLog("generic_error", "未捕获异常", withStack(err)),
		append(extra, zap.Int(logx.FieldStatus, http.StatusInternalServerError))...)
	return http.StatusInternalServerError, errx.Envelope{Code: CodeInternalError, Message: internalErrorMessage}
}

// withStack 保证日志里有栈：错误链里没人捕获过时，在这里补一次。
func withStack(err error) error {
	if errx.HasStack(err) {
		return err
	}
	return errx.Internal("", err)
}

func pathFields(ctx context.Context) []zap.Field {
	if p := Path(ctx); p != "" {
		return []zap.Field{zap.String(logx.FieldPath, p)}
	}
	return nil
}
