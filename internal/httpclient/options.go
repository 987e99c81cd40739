// Package httpclient provides the instrumented HTTP client shared by the
// router, execution gateway and telegram adapters.
package httpclient

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceOption selects which bodies are attached to request spans.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

// ClientOptions holds configuration for the instrumented HTTP client.
type ClientOptions struct {
	providerName   string
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	secrets        []string
	logRequest     bool
	logResponse    bool
	tracer         trace.Tracer
}

// ClientOption configures ClientOptions.
type ClientOption func(*ClientOptions)

// NewClientOptions applies opts over the defaults.
func NewClientOptions(opts ...ClientOption) *ClientOptions {
	options := &ClientOptions{requestTimeout: defaultRequestTimeout}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithProviderName names the upstream in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *ClientOptions) {
		o.providerName = name
	}
}

// WithRequestTimeout bounds every request, body read included.
// Non-positive values keep the default.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if timeout > 0 {
			o.requestTimeout = timeout
		}
	}
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		o.headers = headers
	}
}

// WithBaseURL sets the URL that endpoints are resolved against.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		o.baseURL = url
	}
}

// WithRedactedSecrets masks each secret wherever it appears in a URL recorded
// on a span. Requests whose path carries a secret get no transport-level span,
// since those record the raw URL.
func WithRedactedSecrets(secrets ...string) ClientOption {
	return func(o *ClientOptions) {
		for _, s := range secrets {
			if s != "" {
				o.secrets = append(o.secrets, s)
			}
		}
	}
}

// WithTraceOptions attaches request and/or response bodies to spans.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(o *ClientOptions) {
		o.tracer = tracer
		for _, opt := range opts {
			switch opt {
			case TraceRequest:
				o.logRequest = true
			case TraceResponse:
				o.logResponse = true
			}
		}
	}
}

// RequestOptions holds per-request configuration.
type RequestOptions struct {
	responseErrorHandler ResponseErrorHandler
	labels               []*Label
}

// RequestOption configures a single request.
type RequestOption func(*RequestOptions)

// NewRequestOptions applies opts.
func NewRequestOptions(opts ...RequestOption) *RequestOptions {
	options := &RequestOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// ResponseErrorHandler maps a response to an error, or nil when it is fine.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler sets the handler run on every response.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *RequestOptions) {
		o.responseErrorHandler = handler
	}
}

// Label is an extra metric attribute, such as the endpoint name.
type Label struct {
	Key   string
	Value string
}

// NewLabel creates a new label.
func NewLabel(key, value string) *Label {
	return &Label{Key: key, Value: value}
}

// WithLabels adds metric attributes to the request.
func WithLabels(labels ...*Label) RequestOption {
	return func(o *RequestOptions) {
		o.labels = labels
	}
}
