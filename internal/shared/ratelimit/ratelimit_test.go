package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
)

func newLimiter(t *testing.T, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), nil)
	t.Cleanup(func() { _ = c.Close() })
	l := NewFixedWindow(c, window)
	l.now = func() time.Time { return time.Unix(1_700_000_010, 0) }
	return l, mr
}

func TestAllow_超过上限返回RateLimitExceeded(t *testing.T) {
	l, _ := newLimiter(t, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "Login API", "10.0.0.1", 3)
		if err != nil || !d.Allowed || d.Count != int64(i) {
			t.Fatalf("第 %d 次期望放行，d=%+v err=%v", i, d, err)
		}
	}
	d, err := l.Allow(ctx, "Login API", "10.0.0.1", 3)
	if d.Allowed || !errors.Is(err, errx.ErrRateLimitExceeded) {
		t.Fatalf("期望被限流，d=%+v err=%v", d, err)
	}
	var e *errx.Error
	if !errors.As(err, &e) || e.Status() != 429 || e.Data()["scope"] != "Login API" {
		t.Fatalf("错误不符合预期: %v", err)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter=%v", d.RetryAfter)
	}
}

func TestAllow_键布局与过期时间(t *testing.T) {
	l, mr := newLimiter(t, time.Minute)
	if _, err := l.Allow(context.Background(), "Login API", "u1", 10); err != nil {
		t.Fatalf("err=%v", err)
	}
	bucket := time.Unix(1_700_000_010, 0).UnixNano() / int64(time.Minute)
	key := cache.Keys.RateLimit("login_api", "u1", strconv.FormatInt(bucket, 10))
	if !mr.Exists(key) {
		t.Fatalf("期望 key %q 存在，keys=%v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("期望 TTL=1m，got=%v", ttl)
	}
}

func TestAllow_不同标识互不影响_窗口切换后重置(t *testing.T) {
	l, _ := newLimiter(t, time.Minute)
	ctx := context.Background()

	if _, err := l.Allow(ctx, "api", "a", 1); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := l.Allow(ctx, "api", "b", 1); err != nil {
		t.Fatalf("其他标识不应受影响，err=%v", err)
	}
	if _, err := l.Allow(ctx, "api", "a", 1); err == nil {
		t.Fatalf("期望 a 被限流")
	}

	l.now = func() time.Time { return time.Unix(1_700_000_010, 0).Add(time.Minute) }
	if _, err := l.Allow(ctx, "api", "a", 1); err != nil {
		t.Fatalf("新窗口应重置，err=%v", err)
	}
}

func TestAllow_缓存不可用原样返回(t *testing.T) {
	l, mr := newLimiter(t, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "api", "a", 1)
	if !errors.Is(err, cache.ErrUnavailable) {
		t.Fatalf("期望 cache.ErrUnavailable，got=%v", err)
	}
}
