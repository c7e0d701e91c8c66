// Package telemetry centralizes the otel tracer/meter construction every
// other package pulls from, in place of ad hoc per-package
// otel.Tracer(...) calls, into one shared constructor plus an optional
// OTLP HTTP exporter bootstrap.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jules-labs/eventcore"

// Tracer returns a tracer scoped to name, e.g. "eventcore/eventstore".
// Before Bootstrap is called this is the otel global no-op tracer, which
// is fine for library consumers that don't want tracing wired up.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns a meter scoped to name, analogous to Tracer.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Bootstrap configures the global otel TracerProvider to export spans to
// an OTLP/HTTP collector at endpoint (host:port, no scheme), and installs
// an SDK MeterProvider with the same resource. The MeterProvider has no
// reader or exporter attached, so metrics are not exported by
// Bootstrap. It is optional: nothing in this module requires it, and
// tests run fine against the no-op global providers. Callers own
// shutting down the returned function.
func Bootstrap(ctx context.Context, serviceName, endpoint string) (shutdown func(context.Context) error, err error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure()))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build otlp trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}
