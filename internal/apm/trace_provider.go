// Package apm sets up the global OpenTelemetry trace provider.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "none"
)

// Config selects the exporter. Headers is a comma separated key=value list.
type Config struct {
	ServiceName string
	Provider    Provider
	Endpoint    string
	Headers     string
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// ParseHeaders parses "k1=v1,k2=v2".
func ParseHeaders(s string) (map[string]string, error) {
	headers := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return headers, nil
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("invalid header %q, expected key=value", pair)
		}
		headers[kv[0]] = kv[1]
	}
	return headers, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	headers, err := ParseHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ZipkinProvider:
		return zipkin.New(cfg.Endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(headers),
		)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(headers),
		)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown trace provider %q", cfg.Provider)
}

// NewTraceProvider installs the global tracer provider and propagator.
// An empty or "none" provider installs nothing.
func NewTraceProvider(ctx context.Context, cfg Config, log logger.LoggerInterface) (TraceProvider, error) {
	if cfg.Provider == "" || cfg.Provider == EmptyProvider {
		return emptyTraceProvider{}, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", string(cfg.Provider)),
		))
	if err != nil {
		log.Warn(ctx, "trace resource merge failed, using default", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing initialized", "provider", string(cfg.Provider), "endpoint", cfg.Endpoint)
	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
