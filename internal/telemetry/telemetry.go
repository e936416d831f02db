// Package telemetry wires OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/yelinaung/subday/internal/config"
	"gitlab.com/yelinaung/subday/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies the process in exported telemetry.
const ServiceName = "subday"

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs global tracer and meter providers for the configured
// exporter. With ExporterNone the global no-op providers stay in place.
func Setup(ctx context.Context, cfg *config.Config, version string) (ShutdownFunc, error) {
	return setup(ctx, cfg.OTelExporter, cfg.OTelOTLPProtocol, version, os.Stdout)
}

func setup(ctx context.Context, exporter, protocol, version string, w io.Writer) (ShutdownFunc, error) {
	if exporter == "" || exporter == config.ExporterNone {
		return noopShutdown, nil
	}

	spanExporter, err := newSpanExporter(ctx, exporter, protocol, w)
	if err != nil {
		return nil, err
	}
	metricExporter, err := newMetricExporter(ctx, exporter, protocol, w)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().Str("exporter", exporter).Str("protocol", protocol).Msg("Telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newSpanExporter(ctx context.Context, exporter, protocol string, w io.Writer) (sdktrace.SpanExporter, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch {
	case exporter == config.ExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case exporter == config.ExporterOTLP && protocol == "http":
		exp, err = otlptracehttp.New(ctx)
	case exporter == config.ExporterOTLP:
		exp, err = otlptracegrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}
	return exp, nil
}

func newMetricExporter(ctx context.Context, exporter, protocol string, w io.Writer) (sdkmetric.Exporter, error) {
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch {
	case exporter == config.ExporterStdout:
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(w))
	case exporter == config.ExporterOTLP && protocol == "http":
		exp, err = otlpmetrichttp.New(ctx)
	case exporter == config.ExporterOTLP:
		exp, err = otlpmetricgrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return exp, nil
}
