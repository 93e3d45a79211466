package errx

import (
	"errors"
	"fmt"
	"runtime"
)

// Code 表示错误码（对外语义的稳定标识，客户端据此做程序化分支）。
type Code string

// Error 是服务层失败的通用模型：
// - kind：决定 HTTP 状态码与错误码，二者在类型层面固定，实例无法覆盖
// - msg：面向人的描述，允许调用方覆盖，不保证跨版本稳定
// - data：诊断上下文，只进日志，永远不进响应体（内部会复制，禁止外部修改）
// - cause：原始错误链（仅用于溯源，不参与对外语义）
// - stack：只在 Internal 类错误第一次挂 cause 时捕获一次
type Error struct {
	kind  Kind
	msg   string
	data  map[string]any
	cause error
	stack []uintptr
}

// New 按类别创建错误；msg 为空时使用类别的默认描述。
func New(kind Kind, msg string) *Error {
	if !kind.valid() {
		kind = KindInternal
	}
	if msg == "" {
		msg = kind.defaultMessage()
	}
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Code(), e.msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code(), e.msg, e.cause)
}

// Unwrap 让 errors.Is / errors.As 可以沿着 cause 链溯源。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 让 errors.Is 仅按类别判断“语义是否相同”，忽略 msg/data/cause。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.kind == t.kind
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *Error) Code() Code {
	if e == nil {
		return ""
	}
	return e.kind.Code()
}

func (e *Error) CodeText() string {
	return string(e.Code())
}

// Status 返回类别固定的 HTTP 状态码。
func (e *Error) Status() int {
	if e == nil {
		return KindInternal.Status()
	}
	return e.kind.Status()
}

func (e *Error) Msg() string {
	if e == nil {
		return ""
	}
	return e.msg
}

// Data 返回 data 的拷贝，避免外部修改影响错误上下文。
func (e *Error) Data() map[string]any {
	if e == nil || e.data == nil {
		return nil
	}
	return cloneAnyMap(e.data)
}

// Stack 返回“错误最早发生/被转换那一刻”的调用栈（只对 Internal 类错误生效，且只捕获一次）。
func (e *Error) Stack() []uintptr {
	if e == nil || len(e.stack) == 0 {
		return nil
	}
	return cloneStack(e.stack)
}

// Envelope 生成响应体：只有 code 与 message，data 刻意排除在外。
func (e *Error) Envelope() Envelope {
	return Envelope{Code: e.CodeText(), Message: e.Msg()}
}

func (e *Error) WithMessage(msg string) *Error {
	next := e.clone()
	if msg != "" {
		next.msg = msg
	}
	return next
}

func (e *Error) WithData(key string, value any) *Error {
	next := e.clone()
	if next.data == nil {
		next.data = make(map[string]any, 1)
	}
	next.data[key] = value
	return next
}

func (e *Error) WithDataMap(data map[string]any) *Error {
	next := e.clone()
	if len(data) == 0 {
		return next
	}
	if next.data == nil {
		next.data = make(map[string]any, len(data))
	}
	for k, v := range data {
		next.data[k] = v
	}
	return next
}

func (e *Error) WithCause(cause error) *Error {
	next := e.clone()
	next.cause = cause
	// 只在 Internal 类错误首次挂 cause 时捕获一次；如果下层已有栈，则不上浮重复捕获。
	if next.kind == KindInternal && cause != nil && len(next.stack) == 0 && !hasStackInChain(cause) {
		next.stack = captureStack(3)
	}
	return next
}

func (e *Error) clone() *Error {
	return &Error{
		kind:  e.kind,
		msg:   e.msg,
		data:  cloneAnyMap(e.data),
		cause: e.cause,
		stack: cloneStack(e.stack),
	}
}

// Envelope 是业务错误的响应体。
type Envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Callers 供其他错误类型在“分类/转换处”捕获一次调用栈，skip=0 表示 Callers 的调用方。
func Callers(skip int) []uintptr {
	return captureStack(skip + 3)
}

// HasStack 判断错误链中是否已经有人捕获过栈。
func HasStack(err error) bool {
	return hasStackInChain(err)
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStack(in []uintptr) []uintptr {
	if len(in) == 0 {
		return nil
	}
	out := make([]uintptr, len(in))
	copy(out, in)
	return out
}

func captureStack(skip int) []uintptr {
	const maxDepth = 64
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip, pcs)
	if n <= 0 {
		return nil
	}
	return pcs[:n]
}

func hasStackInChain(err error) bool {
	const maxDepth = 32
	for i := 0; i < maxDepth && err != nil; i++ {
		if sp, ok := err.(interface{ Stack() []uintptr }); ok && len(sp.Stack()) != 0 {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
