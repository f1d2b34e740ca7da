package telemetry

import (
	"context"
	"fmt"
	"log"

	"distorage/internal/config"
	"distorage/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// IdAttributes renders a domain.ID as a pair of OTEL span attributes
// (decimal and hex), used to tag every span touching ring routing with
// the identifier it concerns.
func IdAttributes(prefix string, id domain.ID) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(prefix+".dec", id.ToBigInt().String()),
		attribute.String(prefix+".hex", id.ToHexString(true)),
	}
}

// InitTracer configures the global OTEL tracer provider according to
// cfg.Tracing, and returns a shutdown function to flush/close the
// exporter on graceful process exit. If tracing is disabled, it installs
// nothing and returns a no-op shutdown.
func InitTracer(cfg config.TelemetryConfig, serviceName string, nodeID domain.ID) func(context.Context) error {
	if !cfg.Tracing.Enabled {
		log.Println("tracing disabled")
		return func(context.Context) error { return nil }
	}

	attrs := append(
		[]attribute.KeyValue{semconv.ServiceNameKey.String(serviceName)},
		IdAttributes("ring.node.id", nodeID)...,
	)

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		log.Fatalf("failed to create telemetry resource: %v", err)
	}

	var tp *sdktrace.TracerProvider

	switch cfg.Tracing.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Fatalf("failed to initialize stdout exporter: %v", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	case "otlp":
		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Tracing.Endpoint),
		)
		if err != nil {
			log.Fatalf("failed to initialize OTLP exporter: %v", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	default:
		panic(fmt.Sprintf("unsupported exporter: %s", cfg.Tracing.Exporter))
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp.Shutdown
}
