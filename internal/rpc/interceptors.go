package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
)

// RequestIDMetadataKey carries a caller-chosen request id in both
// directions: read from incoming metadata, echoed in the response header.
const RequestIDMetadataKey = "x-request-id"

// RequestIDUnaryServerInterceptor gives every call a request id and a
// method-scoped logger, retrievable with logging.LoggerFromContext. Records
// logged with the call's context carry the id.
// A caller-supplied id is kept; otherwise a fresh one is generated.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if id := incomingRequestID(ctx); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, log := logging.WithRequestLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, log)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, logging.RequestIDFromContext(ctx)))

		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []logging.Field{
			logging.String("code", status.Code(err).String()),
			logging.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			log.Warn(ctx, "request failed", append(fields, logging.Err(err))...)
		} else {
			log.Debug(ctx, "request done", fields...)
		}
		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
