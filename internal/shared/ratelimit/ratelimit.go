// Package ratelimit 基于缓存的固定窗口限流。
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
)

// Decision 是一次限流判定的结果。
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int64
	// RetryAfter 是到当前窗口结束的剩余时间。
	RetryAfter time.Duration
}

// Limiter 是固定窗口计数器：ratelimit:{scope}:{identifier}:{窗口序号}，
// 每次请求在一个批次里 INCR + EXPIRE。
type Limiter struct {
	store  *cache.Client
	window time.Duration
	now    func() time.Time
}

func NewFixedWindow(store *cache.Client, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, window: window, now: time.Now}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow 计数并判定。超限时返回 RateLimitExceeded 类错误（同时返回 Decision）；
// 缓存故障原样返回 *cache.Error，是否放行由调用方决定。
func (l *Limiter) Allow(ctx context.Context, scope, identifier string, limit int64) (Decision, error) {
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	key := cache.Keys.RateLimit(scope, identifier, strconv.FormatInt(bucket, 10))
	resetAt := time.Unix(0, (bucket+1)*int64(l.window))

	var incr *redis.IntCmd
	err := l.store.Pipeline(ctx, func(b *cache.Batch) error {
		incr = b.Incr(key, 1)
		b.Expire(key, l.window)
		return nil
	})
	if err != nil {
		return Decision{Limit: limit}, err
	}
	count := incr.Val()

	d := Decision{Allowed: count <= limit, Count: count, Limit: limit, RetryAfter: resetAt.Sub(now)}
	if !d.Allowed {
		return d, errx.RateLimitExceeded("").WithDataMap(map[string]any{
			"scope":       scope,
			"identifier":  identifier,
			"limit":       limit,
			"retry_after": d.RetryAfter.String(),
		})
	}
	return d, nil
}
