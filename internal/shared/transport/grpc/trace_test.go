package grpc

import (
	"context"
	"errors"
	"testing"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/tracex"
)

func TestUnaryServerTraceInterceptor_绑定并在结束后清空(t *testing.T) {
	md := metadata.Pairs(requestIDHeader, "rid-1", tenantIDHeader, "t1")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var inner context.Context
	_, err := UnaryServerTraceInterceptor()(ctx, nil, &gogrpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req any) (any, error) {
			inner = ctx
			rec := tracex.Snapshot(ctx)
			if rec.RequestID != "rid-1" || rec.TenantID != "t1" || rec.UserID != tracex.Unset {
				t.Fatalf("快照不符合预期: %+v", rec)
			}
			return nil, nil
		})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rec := tracex.Snapshot(inner); rec != tracex.Default() {
		t.Fatalf("调用结束后期望清空，got=%+v", rec)
	}
}

func TestUnaryServerTraceInterceptor_缺少request_id时生成(t *testing.T) {
	_, _ = UnaryServerTraceInterceptor()(context.Background(), nil, &gogrpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			if tracex.Snapshot(ctx).RequestID == tracex.Unset {
				t.Fatalf("期望生成 request id")
			}
			return nil, nil
		})
}

func TestUnaryClientTraceInterceptor_只注入已绑定字段(t *testing.T) {
	ctx, release := tracex.Begin(context.Background())
	defer release()
	tracex.Bind(ctx, tracex.WithRequestID("rid-2"), tracex.WithUserID("u1"))

	var out metadata.MD
	invoker := func(ctx context.Context, method string, req, reply any, cc *gogrpc.ClientConn, opts ...gogrpc.CallOption) error {
		out, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	if err := UnaryClientTraceInterceptor()(ctx, "/x/Y", nil, nil, nil, invoker); err != nil {
		t.Fatalf("err=%v", err)
	}
	if first(out, requestIDHeader) != "rid-2" || first(out, userIDHeader) != "u1" {
		t.Fatalf("metadata 不符合预期: %v", out)
	}
	if len(out.Get(tenantIDHeader)) != 0 {
		t.Fatalf("未绑定的 tenant 不应注入: %v", out)
	}
}

func TestUnaryServerErrorInterceptor_映射status(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{errx.NotFound(""), codes.NotFound},
		{errx.RateLimitExceeded(""), codes.ResourceExhausted},
		{errx.NewBoundary("", errx.FieldError{Field: "req.title", Message: "不能为空"}), codes.InvalidArgument},
		{errors.New("boom"), codes.Internal},
	}
	for _, c := range cases {
		_, err := UnaryServerErrorInterceptor(nil)(context.Background(), nil, &gogrpc.UnaryServerInfo{},
			func(ctx context.Context, req any) (any, error) { return nil, c.err })
		s, ok := status.FromError(err)
		if !ok || s.Code() != c.want {
			t.Fatalf("err=%v 期望 %v，got=%v", c.err, c.want, err)
		}
	}

	_, err := UnaryServerErrorInterceptor(nil)(context.Background(), nil, &gogrpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) { return nil, errors.New("secret dsn") })
	if s, _ := status.FromError(err); s.Message() != "Internal server error" {
		t.Fatalf("不应泄露原始错误: %q", s.Message())
	}
}
