package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgergrpc "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/logger"
)

// LoggingUnary logs one line per RPC with its code and latency. Chain it
// after the auth interceptor so the request id and actor are known.
func LoggingUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		args := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id := ledgergrpc.GetRequestIDFromContext(ctx); id != "" {
			args = append(args, "request_id", id)
		}
		if actor, aerr := ledgergrpc.GetActorFromContext(ctx); aerr == nil {
			args = append(args, "actor_id", actor.ActorID)
		}

		switch {
		case err == nil:
			logger.InfoContext(ctx, "rpc", args...)
		case code == codes.Internal || code == codes.Unknown:
			logger.ErrorContext(ctx, "rpc failed", append(args, "error", err)...)
		default:
			logger.WarnContext(ctx, "rpc failed", append(args, "error", err)...)
		}
		return resp, err
	}
}
