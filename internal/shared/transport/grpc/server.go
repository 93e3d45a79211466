package grpc

import (
	"fmt"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"ClipFusion/modules/kit/logx"
)

// NewServer 创建挂好拦截器的 gRPC server，并注册标准健康检查服务。
// 顺序是 trace 在前、错误出口在后，错误日志才能带上 request_id。
func NewServer(log logx.Logger, opts ...gogrpc.ServerOption) (*gogrpc.Server, *health.Server) {
	opts = append([]gogrpc.ServerOption{
		gogrpc.ChainUnaryInterceptor(UnaryServerTraceInterceptor(), UnaryServerErrorInterceptor(log)),
		gogrpc.ChainStreamInterceptor(StreamServerTraceInterceptor()),
	}, opts...)
	server := gogrpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	return server, hs
}

// Dial 建立带 trace 透传的明文连接，额外的 DialOption 追加在默认项之后。
func Dial(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	opts = append([]gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithChainUnaryInterceptor(UnaryClientTraceInterceptor()),
		gogrpc.WithChainStreamInterceptor(StreamClientTraceInterceptor()),
	}, opts...)
	conn, err := gogrpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", target, err)
	}
	return conn, nil
}
