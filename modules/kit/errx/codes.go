package errx

import "net/http"

// Kind 是服务层失败的封闭分类。
//
// 约束：
// - 每个类别的 (HTTP 状态码, 错误码) 固定，是对客户端公开的协议，不随版本变化
// - 新增类别必须同步更新 kindTable，不允许在业务侧临时拼装状态码
type Kind uint8

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindPermissionDenied
	KindRateLimitExceeded
)

const (
	CodeInternal          Code = "SERVICE_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
)

type kindInfo struct {
	name    string
	status  int
	code    Code
	message string
}

var kindTable = [...]kindInfo{
	KindInternal:          {"internal", http.StatusInternalServerError, CodeInternal, "服务器内部错误"},
	KindUnauthorized:      {"unauthorized", http.StatusUnauthorized, CodeUnauthorized, "未授权"},
	KindForbidden:         {"forbidden", http.StatusForbidden, CodeForbidden, "禁止访问"},
	KindNotFound:          {"not_found", http.StatusNotFound, CodeNotFound, "资源不存在"},
	KindConflict:          {"conflict", http.StatusConflict, CodeConflict, "资源冲突"},
	KindValidation:        {"validation", http.StatusBadRequest, CodeValidation, "业务校验失败"},
	KindPermissionDenied:  {"permission_denied", http.StatusForbidden, CodePermissionDenied, "权限不足"},
	KindRateLimitExceeded: {"rate_limit_exceeded", http.StatusTooManyRequests, CodeRateLimitExceeded, "请求过于频繁"},
}

func (k Kind) valid() bool {
	return int(k) < len(kindTable)
}

func (k Kind) info() kindInfo {
	if !k.valid() {
		return kindTable[KindInternal]
	}
	return kindTable[k]
}

func (k Kind) String() string {
	return k.info().name
}

// Status 返回类别固定的 HTTP 状态码。
func (k Kind) Status() int {
	return k.info().status
}

// Code 返回类别固定的错误码。
func (k Kind) Code() Code {
	return k.info().code
}

func (k Kind) defaultMessage() string {
	return k.info().message
}

// Kinds 返回全部类别，按声明顺序。
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindTable))
	for i := range kindTable {
		out = append(out, Kind(i))
	}
	return out
}

// 哨兵错误：只用于 errors.Is 判断与派生（WithMessage/WithData/WithCause 都返回新对象）。
var (
	ErrInternal          = New(KindInternal, "")
	ErrUnauthorized      = New(KindUnauthorized, "")
	ErrForbidden         = New(KindForbidden, "")
	ErrNotFound          = New(KindNotFound, "")
	ErrConflict          = New(KindConflict, "")
	ErrValidation        = New(KindValidation, "")
	ErrPermissionDenied  = New(KindPermissionDenied, "")
	ErrRateLimitExceeded = New(KindRateLimitExceeded, "")
)

func Unauthorized(msg string) *Error      { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }
func Validation(msg string) *Error        { return New(KindValidation, msg) }
func PermissionDenied(msg string) *Error  { return New(KindPermissionDenied, msg) }
func RateLimitExceeded(msg string) *Error { return New(KindRateLimitExceeded, msg) }

// Internal 创建 Internal 类错误并挂载 cause（会在此处捕获一次栈）。
func Internal(msg string, cause error) *Error {
	e := New(KindInternal, msg)
	if cause == nil {
		return e
	}
	e.cause = cause
	if !hasStackInChain(cause) {
		e.stack = captureStack(3)
	}
	return e
}
