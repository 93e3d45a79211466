package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"ClipFusion/modules/kit/errx"
)

// Kind 区分缓存故障的两种结果。它与服务层错误分类是两套体系：这里表示基础设施状态，不是业务状态。
type Kind uint8

const (
	// KindOperationFailed 命令被存储拒绝或执行失败。
	KindOperationFailed Kind = iota + 1
	// KindUnavailable 连接/传输层不可用（连不上、断开、超时、已关闭）。
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindOperationFailed:
		return "operation_failed"
	default:
		return "unknown"
	}
}

func (k Kind) code() string {
	if k == KindUnavailable {
		return "CACHE_UNAVAILABLE"
	}
	return "CACHE_OPERATION_FAILED"
}

// Error 是缓存操作失败的统一错误：
// - op/keys：哪条命令、涉及哪些 key，仅用于诊断
// - cause：底层连接器的原始错误，仅用于诊断，不参与控制流
// - stack：在分类处捕获一次
type Error struct {
	kind  Kind
	op    string
	keys  []string
	cause error
	stack []uintptr
}

// 哨兵错误：调用方用 errors.Is(err, cache.ErrUnavailable) 判断。
var (
	ErrUnavailable     = &Error{kind: KindUnavailable}
	ErrOperationFailed = &Error{kind: KindOperationFailed}
)

// ErrConflictingConditions 表示同时要求“仅当不存在”和“仅当存在”，直接拒绝，不交给存储决定。
var ErrConflictingConditions = errors.New("cache: only-if-absent and only-if-exists are mutually exclusive")

func newError(kind Kind, op string, keys []string, cause error) *Error {
	e := &Error{kind: kind, op: op, keys: append([]string(nil), keys...), cause: cause}
	if !errx.HasStack(cause) {
		e.stack = errx.Callers(2)
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("redis %s %s", e.op, e.kind)
	if e.op == "" {
		msg = "redis " + e.kind.String()
	}
	if len(e.keys) != 0 {
		msg += " keys=[" + strings.Join(e.keys, ",") + "]"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 只按 kind 比较。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return e.kind == t.kind
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Op() string { return e.op }

func (e *Error) Keys() []string { return append([]string(nil), e.keys...) }

func (e *Error) CodeText() string { return e.kind.code() }

func (e *Error) Msg() string {
	if e.kind == KindUnavailable {
		return "Redis connection failed"
	}
	return fmt.Sprintf("Redis %s operation failed", strings.ToLower(e.op))
}

func (e *Error) Data() map[string]any {
	data := map[string]any{"op": e.op}
	if len(e.keys) != 0 {
		data["keys"] = e.Keys()
	}
	return data
}

func (e *Error) Stack() []uintptr {
	if e == nil || len(e.stack) == 0 {
		return nil
	}
	out := make([]uintptr, len(e.stack))
	copy(out, e.stack)
	return out
}

// classify 把底层错误归为两类之一。redis.Nil 表示“不存在”，调用方必须在此之前处理。
func classify(err error) Kind {
	// 服务端回复的错误（WRONGTYPE、NOSCRIPT、EXECABORT 等）说明连接是通的
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return KindOperationFailed
	}
	var netErr net.Error
	switch {
	case errors.Is(err, redis.ErrClosed),
		errors.Is(err, redis.ErrPoolTimeout),
		errors.Is(err, redis.ErrPoolExhausted),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return KindUnavailable
	}
	return KindOperationFailed
}
