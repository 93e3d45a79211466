package tracex

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Unset 表示“未知/尚未绑定”。
const Unset = "-"

// Record 是一个工作单元（一次请求或一次后台任务）的观测上下文。
type Record struct {
	TenantID  string
	UserID    string
	RequestID string
}

// Default 返回所有字段都为 "-" 的记录。
func Default() Record {
	return Record{TenantID: Unset, UserID: Unset, RequestID: Unset}
}

// Fields 以日志字段名返回记录内容。
func (r Record) Fields() map[string]string {
	return map[string]string{
		"tenant_id":  r.TenantID,
		"user_id":    r.UserID,
		"request_id": r.RequestID,
	}
}

// holder 挂在工作单元自己的 ctx 上，只有持有这条 ctx 链的调用方能看到。
// 同一工作单元内派生的 goroutine 可能并发读写，用锁保护。
type holder struct {
	mu  sync.RWMutex
	rec Record
}

type holderKey struct{}

// Begin 为一个工作单元开启上下文作用域，返回的 release 必须在所有退出路径上调用（defer）。
// 嵌套调用会得到一份独立的记录，遮蔽外层记录。
func Begin(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	h := &holder{rec: Default()}
	ctx = context.WithValue(ctx, holderKey{}, h)
	return ctx, func() { h.reset() }
}

// Scope 在作用域内执行 fn：进入时开启，退出时（包括 panic）保证清空。
func Scope(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, release := Begin(ctx)
	defer release()
	return fn(ctx)
}

// Option 是 Bind 的部分更新项，未提供的字段保持不变。
type Option func(*Record)

func WithTenantID(id string) Option {
	return func(r *Record) { r.TenantID = normalize(id) }
}

func WithUserID(id string) Option {
	return func(r *Record) { r.UserID = normalize(id) }
}

func WithRequestID(id string) Option {
	return func(r *Record) { r.RequestID = normalize(id) }
}

// Bind 更新当前工作单元的记录；ctx 不在作用域内时什么都不做。
func Bind(ctx context.Context, opts ...Option) {
	h := holderFrom(ctx)
	if h == nil || len(opts) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, opt := range opts {
		if opt != nil {
			opt(&h.rec)
		}
	}
}

// Snapshot 返回当前记录的拷贝；不在作用域内时返回默认值。
func Snapshot(ctx context.Context) Record {
	h := holderFrom(ctx)
	if h == nil {
		return Default()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rec
}

// Clear 把当前记录重置为默认值，可重复调用。
func Clear(ctx context.Context) {
	if h := holderFrom(ctx); h != nil {
		h.reset()
	}
}

// InScope 判断 ctx 是否已经处于某个工作单元的作用域内。
func InScope(ctx context.Context) bool {
	return holderFrom(ctx) != nil
}

// NewRequestID 生成请求 ID。
func NewRequestID() string {
	return uuid.NewString()
}

func (h *holder) reset() {
	h.mu.Lock()
	h.rec = Default()
	h.mu.Unlock()
}

func holderFrom(ctx context.Context) *holder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(holderKey{}).(*holder)
	return h
}

func normalize(id string) string {
	if id == "" {
		return Unset
	}
	return id
}
