package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request is the interface for building and executing HTTP requests.
type Request interface {
	// HTTP methods
	Get(ctx context.Context, endpoint string) (*Response, error)
	Post(ctx context.Context, endpoint string) (*Response, error)

	// Configuration
	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetHeaders(headers map[string]string) Request
	SetQueryParam(key, value string) Request
	SetQueryParams(params map[string]string) Request
	SetResult(result any) Request
}

// ErrDecodeResult is returned when a successful response body does not decode
// into the value passed to SetResult.
var ErrDecodeResult = errors.New("httpclient: decode result")

// Response wraps http.Response with additional helpers.
type Response struct {
	*http.Response
	body   []byte
	result any
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// IsSuccess returns true if the status code indicates success (< 400).
func (r *Response) IsSuccess() bool {
	return r.StatusCode < 400
}

// Result returns the unmarshaled result.
func (r *Response) Result() any {
	return r.result
}

// requestBuilder implements Request.
type requestBuilder struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	providerName    string
	tracer          trace.Tracer
	baseURL         string
	headers         map[string]string
	queryParams     url.Values
	body            any
	result          any
	errorHandler    ResponseErrorHandler
	labels          []*Label
	redact          func(string) string
	logRequest      bool
	logResponse     bool
	start           time.Time
}

// Get executes a GET request.
func (r *requestBuilder) Get(ctx context.Context, endpoint string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, endpoint)
}

// Post executes a POST request.
func (r *requestBuilder) Post(ctx context.Context, endpoint string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, endpoint)
}

// SetBody sets the request body (will be JSON encoded if struct/map).
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

// SetHeader sets a single header.
func (r *requestBuilder) SetHeader(key, value string) Request {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

// SetHeaders sets multiple headers.
func (r *requestBuilder) SetHeaders(headers map[string]string) Request {
	for k, v := range headers {
		r.SetHeader(k, v)
	}
	return r
}

// SetQueryParam sets a single query parameter.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.queryParams == nil {
		r.queryParams = make(url.Values)
	}
	r.queryParams.Set(key, value)
	return r
}

// SetQueryParams sets multiple query parameters.
func (r *requestBuilder) SetQueryParams(params map[string]string) Request {
	for k, v := range params {
		r.SetQueryParam(k, v)
	}
	return r
}

// SetResult sets the result struct for JSON unmarshaling.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

// execute performs the HTTP request with instrumentation.
func (r *requestBuilder) execute(ctx context.Context, method, endpoint string) (*Response, error) {
	r.start = time.Now()
	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", r.redact(endpoint)),
			attribute.String("provider", r.providerName),
		),
	)
	defer span.End()

	// Build full URL
	fullURL := endpoint
	if r.baseURL != "" && !strings.HasPrefix(endpoint, "http") {
		fullURL = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	}

	// Add query params (url.Values encodes in sorted key order)
	if len(r.queryParams) > 0 {
		separator := "?"
		if strings.Contains(fullURL, "?") {
			separator = "&"
		}
		fullURL = fullURL + separator + r.queryParams.Encode()
	}

	// Build request body
	var bodyReader io.Reader
	if r.body != nil {
		switch b := r.body.(type) {
		case []byte:
			bodyReader = bytes.NewReader(b)
		case string:
			bodyReader = strings.NewReader(b)
		case io.Reader:
			bodyReader = b
		default:
			// JSON encode
			jsonBody, err := json.Marshal(b)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to marshal body")
				return nil, fmt.Errorf("failed to marshal body: %w", err)
			}
			bodyReader = bytes.NewReader(jsonBody)
			if r.headers == nil {
				r.headers = make(map[string]string)
			}
			if _, ok := r.headers["Content-Type"]; !ok {
				r.headers["Content-Type"] = "application/json"
			}
		}

		// Log request body to trace
		if r.logRequest {
			if bodyBytes, ok := r.body.([]byte); ok {
				span.AddEvent("request.body", trace.WithAttributes(
					attribute.String("http.request_body", string(bodyBytes)),
				))
			} else if bodyStr, ok := r.body.(string); ok {
				span.AddEvent("request.body", trace.WithAttributes(
					attribute.String("http.request_body", bodyStr),
				))
			}
		}
	}

	// Create HTTP request
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	// Execute request
	resp, err := r.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = r.redact(urlErr.URL)
		}
		r.recordError(ctx, span, err)
		return nil, err
	}

	// Read body
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Log response body to trace
	if r.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}

	// Build response
	response := &Response{
		Response: resp,
		body:     body,
	}

	// Check for HTTP errors
	if resp.StatusCode >= 400 {
		span.SetAttributes(
			attribute.Int("http.status_code", resp.StatusCode),
			attribute.String("http.error.status", resp.Status),
		)
	}

	// Run custom error handler
	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, false)
			span.SetStatus(codes.Error, r.redact(handlerErr.Error()))
			return response, handlerErr
		}
	}

	// Unmarshal result for successful responses only
	if r.result != nil && len(body) > 0 && response.IsSuccess() {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode body")
			r.recordMetrics(ctx, false)
			return response, fmt.Errorf("%w: %v", ErrDecodeResult, err)
		}
		response.result = r.result
	}

	// Record success metrics
	r.recordMetrics(ctx, !response.IsError())

	return response, nil
}

// recordError logs network errors to the span.
func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, r.redact(err.Error()))
	r.recordMetrics(ctx, false)
}

// recordMetrics counts the request and records its latency.
func (r *requestBuilder) recordMetrics(ctx context.Context, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.providerName),
		attribute.Bool("success", success),
	}

	// Add custom labels
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	r.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.requestDuration.Record(ctx, time.Since(r.start).Seconds(), metric.WithAttributes(attrs...))
}
