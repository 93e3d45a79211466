package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
)

func newTokens(t *testing.T) (*Tokens, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), nil)
	t.Cleanup(func() { _ = c.Close() })
	tk, err := NewTokens("test-secret-123", c)
	if err != nil {
		t.Fatalf("NewTokens err=%v", err)
	}
	return tk, mr
}

func TestNewTokens_缺少密钥应失败(t *testing.T) {
	if _, err := NewTokens("", nil); !errors.Is(err, ErrJWTSecretMissing) {
		t.Fatalf("期望 ErrJWTSecretMissing，got=%v", err)
	}
}

func TestAwardParse_正常签发并解析(t *testing.T) {
	tk, _ := newTokens(t)

	token, err := tk.Award("u42", "t1")
	if err != nil || token == "" {
		t.Fatalf("Award token=%q err=%v", token, err)
	}
	claims, err := tk.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken err=%v", err)
	}
	if claims.UserID != "u42" || claims.TenantID != "t1" || claims.ID == "" {
		t.Fatalf("claims 不符合预期: %+v", claims)
	}
}

func TestParseToken_密钥不一致或过期应失败(t *testing.T) {
	tk, _ := newTokens(t)
	token, _ := tk.Award("u1", "")

	other, _ := NewTokens("another-secret", nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("期望签名校验失败")
	}

	tk.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	if _, err := tk.ParseToken(token); err == nil {
		t.Fatalf("期望过期校验失败")
	}
}

func TestRevoke_写入黑名单后认证失败(t *testing.T) {
	tk, mr := newTokens(t)
	ctx := context.Background()
	token, _ := tk.Award("u1", "t1")

	claims, err := tk.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate err=%v", err)
	}
	if err := tk.Revoke(ctx, claims); err != nil {
		t.Fatalf("Revoke err=%v", err)
	}
	key := cache.Keys.Blacklist(claims.ID)
	if !mr.Exists(key) || mr.TTL(key) <= 0 {
		t.Fatalf("期望黑名单 key 带过期时间，ttl=%v", mr.TTL(key))
	}

	_, err = tk.Authenticate(ctx, token)
	if !errors.Is(err, errx.ErrUnauthorized) {
		t.Fatalf("期望 ErrUnauthorized，got=%v", err)
	}
}

func TestAuthenticate_非法令牌返回Unauthorized(t *testing.T) {
	tk, _ := newTokens(t)
	if _, err := tk.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, errx.ErrUnauthorized) {
		t.Fatalf("期望 ErrUnauthorized，got=%v", err)
	}
}

func TestAuthenticate_缓存不可用原样返回(t *testing.T) {
	tk, mr := newTokens(t)
	token, _ := tk.Award("u1", "")
	mr.Close()

	if _, err := tk.Authenticate(context.Background(), token); !errors.Is(err, cache.ErrUnavailable) {
		t.Fatalf("期望 cache.ErrUnavailable，got=%v", err)
	}
}

func TestRefreshSession_覆盖与删除(t *testing.T) {
	tk, _ := newTokens(t)
	ctx := context.Background()

	_ = tk.SaveRefreshSession(ctx, "u1", "s1", time.Hour)
	_ = tk.SaveRefreshSession(ctx, "u1", "s2", time.Hour)
	if ok, _ := tk.CheckRefreshSession(ctx, "u1", "s1"); ok {
		t.Fatalf("旧会话应失效")
	}
	if ok, _ := tk.CheckRefreshSession(ctx, "u1", "s2"); !ok {
		t.Fatalf("新会话应有效")
	}
	if err := tk.DropRefreshSession(ctx, "u1"); err != nil {
		t.Fatalf("Drop err=%v", err)
	}
	if ok, _ := tk.CheckRefreshSession(ctx, "u1", "s2"); ok {
		t.Fatalf("删除后应失效")
	}
}
