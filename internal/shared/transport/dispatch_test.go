package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/logx"
)

func newObserved() (logx.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logx.NewZapLogger(zap.New(core)), logs
}

func mustJSON(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal err=%v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal err=%v", err)
	}
	return out
}

func TestDispatch_服务层错误_WARN且只含code与message(t *testing.T) {
	log, logs := newObserved()
	ctx := NewContextWithParent(context.Background(), "GET", "/api/v1/projects/:id")

	err := errx.NotFound("项目不存在").WithData("project_id", "p1")
	status, body := Dispatch(ctx, log, fmt.Errorf("load: %w", err))

	if status != http.StatusNotFound {
		t.Fatalf("status=%d", status)
	}
	got := mustJSON(t, body)
	if len(got) != 2 || got["code"] != "NOT_FOUND" || got["message"] != "项目不存在" {
		t.Fatalf("响应体不符合预期: %v", got)
	}
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("期望 1 条 WARN 日志，got=%v", logs.All())
	}
	fields := logs.All()[0].ContextMap()
	if fields[logx.FieldComponent] != "server_error" || fields[logx.FieldPath] != "/api/v1/projects/:id" {
		t.Fatalf("字段不符合预期: %v", fields)
	}
	if FromContext(ctx).ErrorCode != "NOT_FOUND" {
		t.Fatalf("期望访问日志记录错误码")
	}
}

func TestDispatch_边界错误_422且字段路径已剥离(t *testing.T) {
	log, logs := newObserved()

	err := errx.NewBoundary("",
		errx.FieldError{Field: "user.email", Message: "invalid"},
		errx.FieldError{Field: "user.age", Message: "must be positive"},
	)
	status, body := Dispatch(context.Background(), log, err)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", status)
	}
	env, ok := body.(errx.ValidationEnvelope)
	if !ok || env.Code != "invalid_request" || len(env.Detail) != 2 {
		t.Fatalf("响应体不符合预期: %#v", body)
	}
	if env.Detail[0].Field != "email" || env.Detail[1].Field != "age" {
		t.Fatalf("字段路径不符合预期: %+v", env.Detail)
	}
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("期望 1 条 WARN 日志")
	}
	if logs.All()[0].ContextMap()[logx.FieldComponent] != "api" {
		t.Fatalf("期望 component=api")
	}
}

func TestDispatch_缓存错误_ERROR且不泄露cause(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), nil)
	defer c.Close()
	mr.Close()
	_, _, cerr := c.Get(context.Background(), "k")
	if cerr == nil {
		t.Fatalf("期望缓存错误")
	}

	log, logs := newObserved()
	status, body := Dispatch(context.Background(), log, cerr)
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d", status)
	}
	got := mustJSON(t, body)
	if got["code"] != "cache_error" || len(got) != 2 {
		t.Fatalf("响应体不符合预期: %v", got)
	}
	if msg, _ := got["message"].(string); strings.Contains(msg, "dial") || strings.Contains(msg, mr.Addr()) {
		t.Fatalf("不应泄露底层错误: %q", msg)
	}
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.ErrorLevel {
		t.Fatalf("期望 1 条 ERROR 日志")
	}
	fields := logs.All()[0].ContextMap()
	if fields[logx.FieldComponent] != "redis_error" || fields["stack_origin"] == "" {
		t.Fatalf("期望 redis_error 且带栈: %v", fields)
	}
}

func TestDispatch_未知错误_固定响应体(t *testing.T) {
	log, logs := newObserved()

	status, body := Dispatch(context.Background(), log, errors.New("secret connection string leaked"))
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d", status)
	}
	got := mustJSON(t, body)
	if got["code"] != "internal_error" || got["message"] != "Internal server error" || len(got) != 2 {
		t.Fatalf("响应体不符合预期: %v", got)
	}
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.ErrorLevel {
		t.Fatalf("期望 1 条 ERROR 日志")
	}
	fields := logs.All()[0].ContextMap()
	if fields[logx.FieldComponent] != "generic_error" || fields["stack_origin"] == "" {
		t.Fatalf("期望 generic_error 且带栈: %v", fields)
	}
	if !strings.Contains(fmt.Sprint(fields[logx.FieldError]), "secret connection string") {
		t.Fatalf("原始错误应只出现在日志里: %v", fields)
	}
}

func TestDispatch_nil不输出(t *testing.T) {
	log, logs := newObserved()
	if status, body := Dispatch(context.Background(), log, nil); status != http.StatusOK || body != nil {
		t.Fatalf("status=%d body=%v", status, body)
	}
	if logs.Len() != 0 {
		t.Fatalf("不应记录日志")
	}
}

func TestWriteAccessLog_带状态与错误码(t *testing.T) {
	log, logs := newObserved()
	ctx := NewContextWithParent(context.Background(), "POST", "/api/v1/projects")
	SetStatus(ctx, http.StatusConflict)
	SetErrorCode(ctx, "CONFLICT")
	SetErrorCode(ctx, "ignored")

	WriteAccessLog(ctx, log)
	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("期望 1 条 WARN 访问日志")
	}
	fields := logs.All()[0].ContextMap()
	if fields[logx.FieldError] != "CONFLICT" || fields[logx.FieldMethod] != "POST" {
		t.Fatalf("字段不符合预期: %v", fields)
	}
	if _, ok := fields[logx.FieldDuration]; !ok {
		t.Fatalf("期望包含 duration")
	}
}
