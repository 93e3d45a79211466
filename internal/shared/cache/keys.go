package cache

import "strings"

// 顶层命名空间：新增前缀必须同步更新这里，禁止业务侧自行拼接。
const (
	nsAuth      = "auth"
	nsVerify    = "verify"
	nsRateLimit = "ratelimit"
	nsCache     = "cache"
)

// Keys 集中生成平台内的 Redis Key。
//
// 规则：命名空间段统一小写、空格替换为下划线；标识符原样保留（可能是任意字符的不透明 token）。
var Keys keys

type keys struct{}

// Blacklist 访问令牌黑名单。
func (keys) Blacklist(tokenID string) string {
	return join(nsAuth, "blacklist", tokenID)
}

// RefreshSession 记录用户最新 Refresh Token。
func (keys) RefreshSession(userID string) string {
	return join(nsAuth, "refresh_session", userID)
}

// VerificationCode 验证码正文（邮箱、短信等场景）。
func (keys) VerificationCode(scene, target string) string {
	return join(nsVerify, normalize(scene), target)
}

// VerificationAttempts 验证码错误次数计数。
func (keys) VerificationAttempts(scene, target string) string {
	return join(nsVerify, normalize(scene), target, "attempts")
}

// RateLimit 限流计数；window 是调用方定义的桶标签（如 "1m"、"1h"），这里不做校验。
func (keys) RateLimit(scope, identifier, window string) string {
	return join(nsRateLimit, normalize(scope), identifier, window)
}

// Cache 通用缓存数据，必须显式传入业务命名空间，不提供默认值。
func (keys) Cache(namespace, key string) string {
	return join(nsCache, normalize(namespace), key)
}

func normalize(segment string) string {
	return strings.ReplaceAll(strings.ToLower(segment), " ", "_")
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}
