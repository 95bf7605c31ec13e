// Package telemetry sets up OpenTelemetry tracing for requests to the generation services.
package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "codeanalyst"
	tracerName  = "github.com/cchalm/codeanalyst"
)

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Enabled bool
	// OTLPEndpoint is a host:port accepting OTLP over HTTP. Empty uses the exporter's default or the
	// OTEL_EXPORTER_OTLP_* environment variables.
	OTLPEndpoint   string
	Insecure       bool
	ServiceVersion string
}

// Provider manages the tracer provider for the process
type Provider struct {
	tp     *sdktrace.TracerProvider // nil when disabled
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewProvider creates a new telemetry provider. A disabled provider hands out a no-op tracer.
func NewProvider(ctx context.Context, config TelemetryConfig, logger zerolog.Logger) (*Provider, error) {
	if !config.Enabled {
		logger.Debug().Msg("Telemetry disabled")
		return &Provider{tracer: noop.NewTracerProvider().Tracer(tracerName), logger: logger}, nil
	}

	opts := []otlptracehttp.Option{}
	if config.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(config.OTLPEndpoint))
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", config.ServiceVersion),
		)),
	)
	logger.Info().Str("endpoint", config.OTLPEndpoint).Msg("Telemetry enabled")

	return &Provider{tp: tp, tracer: tp.Tracer(tracerName), logger: logger}, nil
}

// Tracer returns the tracer that spans should be started from
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// Shutdown flushes pending spans and shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	p.logger.Debug().Msg("Shutting down telemetry provider")
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
