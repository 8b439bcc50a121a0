package rpc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

const tracerName = "github.com/signalsfoundry/intercept-simulator/internal/rpc"

// TracingUnaryServerInterceptor names the RPC span "SIM/<service>/<method>"
// and tags it with the request id and resulting status code. With the
// otelgrpc stats handler installed the handler's span is reused; otherwise
// a server span is started here.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := "SIM/" + service + "/" + method

		span := trace.SpanFromContext(ctx)
		owned := !span.SpanContext().IsValid()
		if owned {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
		} else {
			span.SetName(name)
		}
		span.SetAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
		)
		if id := logging.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		resp, err := handler(ctx, req)
		code := status.Code(err)
		span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, code.String())
		}
		return resp, err
	}
}

// startRunSpan opens the span covering one law run inside a Run request.
func startRunSpan(ctx context.Context, scenario *sim.Scenario, law guidance.Law, runID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "Simulation.Run",
		trace.WithAttributes(
			attribute.String("scenario", scenario.Name()),
			attribute.String("guidance_law", law.String()),
			attribute.String("run_id", runID),
			attribute.Int("max_steps", scenario.MaxSteps()),
		),
	)
}
