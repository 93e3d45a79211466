package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"ClipFusion/internal/session"
	"ClipFusion/internal/shared/cache"
	"ClipFusion/internal/shared/config"
	"ClipFusion/internal/shared/logs"
	"ClipFusion/internal/shared/ratelimit"
	"ClipFusion/internal/shared/security"
	transportgrpc "ClipFusion/internal/shared/transport/grpc"
	transporthttp "ClipFusion/internal/shared/transport/http"
	"ClipFusion/internal/shared/transport/http/middleware"
	"ClipFusion/modules/kit/logx"
)

const (
	apiRateLimit       = 120
	apiRateLimitWindow = time.Minute
)

func main() {
	conf := config.MustLoad("")
	if err := logs.Init(conf.App.Name, conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	logs.Info("conf loaded", zap.String("env", conf.App.Environment), zap.String("log_level", conf.Log.Level))

	baseLogger := logx.NewZapLogger(logs.Logger())

	store, err := cache.Open(conf.Redis, baseLogger)
	if err != nil {
		logs.Fatal("open redis failed", zap.Error(err))
	}
	store.StartHealthCheck(conf.Redis.HealthCheckInterval)
	defer func() {
		_ = store.Close()
	}()

	tokens, err := security.NewTokens(conf.Auth.JWTSecret, store)
	if err != nil {
		logs.Fatal("init token service failed", zap.Error(err))
	}

	host := conf.HTTPServer.Host
	if host == "" {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, conf.HTTPServer.Port)

	httpServer := transporthttp.NewHttpServer(addr, nil, baseLogger, transporthttp.Options{
		APIPrefix:        conf.HTTPServer.APIPrefix,
		CorsAllowOrigins: conf.HTTPServer.CorsAllowOrigins,
		Ready:            store.Ping,
	})
	api := httpServer.Group()
	// 限流放在各模块的 Auth 之后，已登录请求按 user_id 计数
	apiLimit := middleware.RateLimit(ratelimit.NewFixedWindow(store, apiRateLimitWindow), "api", apiRateLimit)

	modules := []transporthttp.Registrar{
		session.New(tokens, apiLimit),
	}
	for _, m := range modules {
		m.HttpRegister(api)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	var (
		grpcServer *grpc.Server
		grpcHealth *health.Server
	)
	if conf.GRPCServer.Port > 0 {
		grpcAddr := fmt.Sprintf("%s:%d", conf.GRPCServer.Host, conf.GRPCServer.Port)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logs.Fatal("listen grpc failed", zap.Error(err))
		}
		grpcServer, grpcHealth = transportgrpc.NewServer(baseLogger)
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			logs.Info("grpc server listening", zap.String("addr", grpcAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve failed: %w", err)
			}
		}()
	}

	go func() {
		logs.Info("http server listening", zap.String("addr", addr))
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("http server start failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		if err != nil {
			logs.Error("服务异常退出", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcServer != nil {
		grpcHealth.Shutdown()
		stopCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopCh)
		}()
		select {
		case <-stopCh:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
	}
	_ = httpServer.Shutdown(shutdownCtx)
}
