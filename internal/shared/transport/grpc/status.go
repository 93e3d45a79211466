package grpc

import (
	"context"
	"errors"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ClipFusion/internal/shared/cache"
	"ClipFusion/internal/shared/transport"
	"ClipFusion/modules/kit/errx"
	"ClipFusion/modules/kit/logx"
)

var kindCodes = map[errx.Kind]codes.Code{
	errx.KindInternal:          codes.Internal,
	errx.KindUnauthorized:      codes.Unauthenticated,
	errx.KindForbidden:         codes.PermissionDenied,
	errx.KindNotFound:          codes.NotFound,
	errx.KindConflict:          codes.AlreadyExists,
	errx.KindValidation:        codes.InvalidArgument,
	errx.KindPermissionDenied:  codes.PermissionDenied,
	errx.KindRateLimitExceeded: codes.ResourceExhausted,
}

// UnaryServerErrorInterceptor 是 gRPC 侧的错误出口：日志与消息来自 transport.Dispatch，
// 再按错误类型映射为 status code。放在 trace 拦截器之后，日志才能带上 request_id。
func UnaryServerErrorInterceptor(log logx.Logger) gogrpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *gogrpc.UnaryServerInfo,
		handler gogrpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		return nil, toStatus(ctx, log, err)
	}
}

func toStatus(ctx context.Context, log logx.Logger, err error) error {
	_, body := transport.Dispatch(ctx, log, err)
	msg := ""
	switch b := body.(type) {
	case errx.Envelope:
		msg = b.Message
	case errx.ValidationEnvelope:
		msg = b.Message
	}
	return status.Error(codeOf(err), msg)
}

func codeOf(err error) codes.Code {
	var se *errx.Error
	if errors.As(err, &se) {
		if c, ok := kindCodes[se.Kind()]; ok {
			return c
		}
		return codes.Internal
	}
	var be *errx.BoundaryError
	if errors.As(err, &be) {
		return codes.InvalidArgument
	}
	if errors.Is(err, cache.ErrUnavailable) {
		return codes.Unavailable
	}
	return codes.Internal
}
