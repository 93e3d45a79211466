package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"ClipFusion/modules/kit/logx"
	"ClipFusion/modules/kit/tracex"
)

const failMethod = "/clipfusion.test.Echo/Fail"

// echoDesc 手写一个不依赖生成代码的服务。
func echoDesc(fn func(ctx context.Context) (any, error)) *gogrpc.ServiceDesc {
	return &gogrpc.ServiceDesc{
		ServiceName: "clipfusion.test.Echo",
		HandlerType: (*any)(nil),
		Methods: []gogrpc.MethodDesc{{
			MethodName: "Fail",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
				in := new(healthpb.HealthCheckRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				h := func(ctx context.Context, req any) (any, error) { return fn(ctx) }
				if interceptor == nil {
					return h(ctx, in)
				}
				return interceptor(ctx, in, &gogrpc.UnaryServerInfo{Server: srv, FullMethod: failMethod}, h)
			},
		}},
	}
}

func startServer(t *testing.T, fn func(ctx context.Context) (any, error)) (*gogrpc.ClientConn, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	server, hs := NewServer(logx.NewZapLogger(zap.New(core)))
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	server.RegisterService(echoDesc(fn), struct{}{})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := Dial("passthrough:///bufnet", gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial err=%v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, logs
}

func TestNewServer_健康检查(t *testing.T) {
	conn, _ := startServer(t, nil)
	resp, err := healthpb.NewHealthClient(conn).Check(t.Context(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check err=%v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("期望 SERVING，got=%v", resp.GetStatus())
	}
}

func TestNewServer_拦截器链透传request_id并映射错误(t *testing.T) {
	var seen tracex.Record
	conn, logs := startServer(t, func(ctx context.Context) (any, error) {
		seen = tracex.Snapshot(ctx)
		return nil, errors.New("dsn leaked")
	})

	ctx, release := tracex.Begin(t.Context())
	defer release()
	tracex.Bind(ctx, tracex.WithRequestID("rid-9"), tracex.WithUserID("u1"))

	err := conn.Invoke(ctx, failMethod, &healthpb.HealthCheckRequest{}, new(healthpb.HealthCheckResponse))
	if s, _ := status.FromError(err); s.Code() != codes.Internal || s.Message() != "Internal server error" {
		t.Fatalf("期望脱敏的 Internal，got=%v", err)
	}
	if seen.RequestID != "rid-9" || seen.UserID != "u1" {
		t.Fatalf("服务端快照不符合预期: %+v", seen)
	}

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条 ERROR 日志，got=%d", len(entries))
	}
	if rid := entries[0].ContextMap()[logx.FieldRequestID]; rid != "rid-9" {
		t.Fatalf("错误日志应带 request_id，got=%v", rid)
	}
}
