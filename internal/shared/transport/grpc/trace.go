package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"ClipFusion/modules/kit/tracex"
)

const (
	requestIDHeader = "x-request-id"
	tenantIDHeader  = "x-tenant-id"
	userIDHeader    = "x-user-id"
)

// UnaryClientTraceInterceptor 为客户端 unary 请求自动注入 request/tenant/user。
func UnaryClientTraceInterceptor() gogrpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *gogrpc.ClientConn,
		invoker gogrpc.UnaryInvoker,
		opts ...gogrpc.CallOption,
	) error {
		return invoker(injectToOutgoing(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientTraceInterceptor 为客户端 stream 请求自动注入 request/tenant/user。
func StreamClientTraceInterceptor() gogrpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *gogrpc.StreamDesc,
		cc *gogrpc.ClientConn,
		method string,
		streamer gogrpc.Streamer,
		opts ...gogrpc.CallOption,
	) (gogrpc.ClientStream, error) {
		return streamer(injectToOutgoing(ctx), desc, cc, method, opts...)
	}
}

// UnaryServerTraceInterceptor 为每个 unary 调用打开 tracex 作用域，调用结束时清空。
func UnaryServerTraceInterceptor() gogrpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *gogrpc.UnaryServerInfo,
		handler gogrpc.UnaryHandler,
	) (any, error) {
		ctx, release := beginFromIncoming(ctx)
		defer release()
		return handler(ctx, req)
	}
}

// StreamServerTraceInterceptor 为每个 stream 打开 tracex 作用域，stream 结束时清空。
func StreamServerTraceInterceptor() gogrpc.StreamServerInterceptor {
	return func(
		srv any,
		ss gogrpc.ServerStream,
		info *gogrpc.StreamServerInfo,
		handler gogrpc.StreamHandler,
	) error {
		ctx, release := beginFromIncoming(ss.Context())
		defer release()
		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		})
	}
}

type wrappedServerStream struct {
	gogrpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func injectToOutgoing(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	rec := tracex.Snapshot(ctx)
	kv := make([]string, 0, 6)
	if rec.RequestID != tracex.Unset {
		kv = append(kv, requestIDHeader, rec.RequestID)
	}
	if rec.TenantID != tracex.Unset {
		kv = append(kv, tenantIDHeader, rec.TenantID)
	}
	if rec.UserID != tracex.Unset {
		kv = append(kv, userIDHeader, rec.UserID)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func beginFromIncoming(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, release := tracex.Begin(ctx)
	md, _ := metadata.FromIncomingContext(ctx)

	rid := first(md, requestIDHeader)
	if rid == "" {
		rid = tracex.NewRequestID()
	}
	tracex.Bind(ctx,
		tracex.WithRequestID(rid),
		tracex.WithTenantID(first(md, tenantIDHeader)),
		tracex.WithUserID(first(md, userIDHeader)),
	)
	return ctx, release
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
