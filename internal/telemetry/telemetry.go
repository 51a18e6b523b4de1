// Package telemetry wires the OpenTelemetry tracer provider for the
// gateway. Without a configured OTLP endpoint tracing is a no-op, so the
// upstream fetch path can create spans unconditionally.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/jalgoai/go-auth-gateway"

// Setup initialises the global tracer provider. endpoint is the OTLP/HTTP
// collector address ("host:port"); when empty a no-op tracer is returned.
// The returned shutdown function flushes pending spans.
func Setup(ctx context.Context, serviceName, environment, endpoint string) (trace.Tracer, func(context.Context) error, error) {
	if endpoint == "" {
		tp := noop.NewTracerProvider()
		return tp.Tracer(instrumentationName), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("otlptracehttp.New: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.DeploymentEnvironment(environment),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("resource.Merge: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Tracer(instrumentationName), tp.Shutdown, nil
}
