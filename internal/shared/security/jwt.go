package security

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
)

var ErrJWTSecretMissing = errors.New("auth.jwt_secret is not set")

const defaultTokenTTL = 7 * 24 * time.Hour

type Claims struct {
	UserID   string `json:"uid"`
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// Tokens 负责签发、解析与吊销访问令牌。
// 吊销通过 auth:blacklist:{jti} 实现，过期时间与令牌剩余有效期一致。
type Tokens struct {
	secret []byte
	ttl    time.Duration
	store  *cache.Client
	now    func() time.Time
}

func NewTokens(secret string, store *cache.Client) (*Tokens, error) {
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}
	return &Tokens{secret: []byte(secret), ttl: defaultTokenTTL, store: store, now: time.Now}, nil
}

// Award 生成 Token（默认 7 天过期），jti 用于吊销。
func (t *Tokens) Award(userID, tenantID string) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseToken 解析并验证 Token（签名与有效期），不查询吊销状态。
func (t *Tokens) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tk *jwt.Token) (any, error) {
		if tk.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if token == nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Authenticate 解析 Token 并检查黑名单。
// 令牌无效或已吊销返回 Unauthorized；缓存故障原样返回。
func (t *Tokens) Authenticate(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := t.ParseToken(tokenStr)
	if err != nil {
		return nil, errx.Unauthorized("登录已失效，请重新登录").WithData("reason", err.Error())
	}
	revoked, err := t.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errx.Unauthorized("登录已失效，请重新登录").WithData("jti", claims.ID)
	}
	return claims, nil
}

// Revoke 把 jti 写入黑名单，保留到令牌原本的过期时间。已过期的令牌无需处理。
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(t.now())
		if ttl <= 0 {
			return nil
		}
	}
	_, err := t.store.Set(ctx, cache.Keys.Blacklist(claims.ID), "1", cache.WithTTL(ttl))
	return err
}

func (t *Tokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, found, err := t.store.Get(ctx, cache.Keys.Blacklist(jti))
	return found, err
}

// SaveRefreshSession 记录用户当前有效的刷新会话，新登录会覆盖旧会话。
func (t *Tokens) SaveRefreshSession(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	_, err := t.store.Set(ctx, cache.Keys.RefreshSession(userID), sessionID, cache.WithTTL(ttl))
	return err
}

// CheckRefreshSession 判断 sessionID 是否为该用户当前的刷新会话。
func (t *Tokens) CheckRefreshSession(ctx context.Context, userID, sessionID string) (bool, error) {
	cur, found, err := t.store.Get(ctx, cache.Keys.RefreshSession(userID))
	if err != nil || !found {
		return false, err
	}
	return cur == sessionID, nil
}

func (t *Tokens) DropRefreshSession(ctx context.Context, userID string) error {
	_, err := t.store.Delete(ctx, cache.Keys.RefreshSession(userID))
	return err
}
