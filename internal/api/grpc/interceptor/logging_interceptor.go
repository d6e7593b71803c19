package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"parkspot-backend/internal/logger"
)

// UnaryLogging logs every unary call with its status code and latency
func UnaryLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, info.FullMethod, started, err)
		return resp, err
	}
}

// StreamLogging logs stream completion the same way
func StreamLogging() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		started := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), info.FullMethod, started, err)
		return err
	}
}

func logCall(ctx context.Context, method string, started time.Time, err error) {
	code := status.Code(err)
	args := []any{"method", method, "code", code.String(), "duration", time.Since(started)}
	if err != nil {
		logger.WarnContext(ctx, "gRPC call failed", append(args, "error", err)...)
		return
	}
	logger.DebugContext(ctx, "gRPC call", args...)
}
