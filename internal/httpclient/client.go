package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Each client talks to a single host.
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxIdleConnsPerHost   = 4
	defaultMaxConnsPerHost       = 8
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	meterName             = "instrumented_http_client"
	metricRequestCounter  = "http_client_requests_total"
	metricRequestDuration = "http_client_request_duration_seconds"

	redacted = "*****"
)

// Client builds requests against one upstream.
type Client interface {
	// NewRequest creates a request with default options.
	NewRequest() Request
	// NewRequestWithOptions creates a request with per-request options.
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient is an http.Client whose requests are traced and counted
// per provider.
type InstrumentedClient struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	providerName    string
	tracer          trace.Tracer
	baseURL         string
	defaultHeaders  map[string]string
	redact          func(string) string
	logRequest      bool
	logResponse     bool
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (Client, error) {
	options := NewClientOptions(opts...)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	redact := redactor(options.secrets)
	transportOpts := []otelhttp.Option{
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	}
	if len(options.secrets) > 0 {
		transportOpts = append(transportOpts, otelhttp.WithFilter(func(r *http.Request) bool {
			return redact(r.URL.String()) == r.URL.String()
		}))
	}

	httpClient := &http.Client{
		Timeout: options.requestTimeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}, transportOpts...),
	}

	meter := otel.GetMeterProvider().Meter(
		meterName,
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("HTTP request latency including the body read"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(meterName)
	}

	return &InstrumentedClient{
		client:          httpClient,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		providerName:    providerName,
		tracer:          tracer,
		baseURL:         options.baseURL,
		defaultHeaders:  options.headers,
		redact:          redact,
		logRequest:      options.logRequest,
		logResponse:     options.logResponse,
	}, nil
}

// NewRequest creates a new request builder with default options.
func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

// NewRequestWithOptions creates a new request builder with custom options.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)

	return &requestBuilder{
		client:          c.client,
		requestCounter:  c.requestCounter,
		requestDuration: c.requestDuration,
		providerName:    c.providerName,
		tracer:          c.tracer,
		baseURL:         c.baseURL,
		headers:         copyHeaders(c.defaultHeaders),
		errorHandler:    reqOpts.responseErrorHandler,
		labels:          reqOpts.labels,
		redact:          c.redact,
		logRequest:      c.logRequest,
		logResponse:     c.logResponse,
	}
}

// redactor returns a function masking every secret in s.
func redactor(secrets []string) func(string) string {
	if len(secrets) == 0 {
		return func(s string) string { return s }
	}
	pairs := make([]string, 0, 2*len(secrets))
	for _, s := range secrets {
		pairs = append(pairs, s, redacted)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace
}

func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
