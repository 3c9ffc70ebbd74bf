package grpc

import (
	"context"
	"log/slog"
	"time"

	grpcgo "google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// RequestTimeoutInterceptor applies timeout to calls that arrive without a
// deadline of their own.
func RequestTimeoutInterceptor(timeout time.Duration) grpcgo.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpcgo.UnaryServerInfo, handler grpcgo.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func AccessLogInterceptor(log *slog.Logger) grpcgo.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.access"))

	return func(ctx context.Context, req any, info *grpcgo.UnaryServerInfo, handler grpcgo.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug(
			"rpc finished",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
