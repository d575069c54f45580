// Package telemetry wires OpenTelemetry tracing and metrics exporters.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gitlab.com/yelinaung/expense-client/internal/config"
	"gitlab.com/yelinaung/expense-client/internal/logger"
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

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs global tracer and meter providers according to cfg.
// Stdout exporters write to w. When telemetry is disabled the global
// no-op providers are left in place.
func Setup(ctx context.Context, cfg *config.Config, w io.Writer) (ShutdownFunc, error) {
	if !cfg.TelemetryEnabled() {
		return noopShutdown, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.OTelServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	spanExporter, err := newSpanExporter(ctx, cfg, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	metricExporter, err := newMetricExporter(ctx, cfg, w)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Log.Info().
		Str("exporter", cfg.OTelExporter).
		Str("protocol", cfg.OTelProtocol).
		Str("service", cfg.OTelServiceName).
		Msg("Telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}

func newSpanExporter(ctx context.Context, cfg *config.Config, w io.Writer) (sdktrace.SpanExporter, error) {
	if cfg.OTelExporter == "stdout" {
		return stdouttrace.New(stdouttrace.WithWriter(w))
	}

	if cfg.OTelProtocol == "http" {
		var opts []otlptracehttp.Option
		if cfg.OTelOTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTelOTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	var opts []otlptracegrpc.Option
	if cfg.OTelOTLPEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.OTelOTLPEndpoint))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, cfg *config.Config, w io.Writer) (sdkmetric.Exporter, error) {
	if cfg.OTelExporter == "stdout" {
		return stdoutmetric.New(stdoutmetric.WithWriter(w))
	}

	if cfg.OTelProtocol == "http" {
		var opts []otlpmetrichttp.Option
		if cfg.OTelOTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpointURL(cfg.OTelOTLPEndpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	var opts []otlpmetricgrpc.Option
	if cfg.OTelOTLPEndpoint != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(cfg.OTelOTLPEndpoint))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}
