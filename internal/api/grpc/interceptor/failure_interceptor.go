package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	api "hireflow-backend/internal/api/grpc"
	"hireflow-backend/internal/domain"
	"hireflow-backend/internal/logger"
)

// UnaryFailures logs each call and converts workflow errors into gRPC status
// errors. Tagged failures keep their code in the message; anything else is
// logged with its detail and surfaced as Internal.
func UnaryFailures() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err == nil {
			logger.DebugContext(ctx, "gRPC call", "method", info.FullMethod, "duration", time.Since(start))
			return resp, nil
		}

		if f, ok := domain.AsFailure(err); ok {
			logger.InfoContext(ctx, "gRPC call rejected", "method", info.FullMethod, "code", f.Code, "duration", time.Since(start))
		} else if _, ok := status.FromError(err); !ok {
			logger.ErrorContext(ctx, "gRPC call failed", "method", info.FullMethod, "error", err, "duration", time.Since(start))
		}
		return nil, api.FailureToStatus(err)
	}
}
