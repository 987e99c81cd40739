// Package router implements the QuoteSource port against the swap router HTTP API.
package router

import (
	"context"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/perp-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/ratelimit"
)

const (
	tracerName = "router"
	meterName  = "router"

	swapEndpoint = "/swap"

	httpTimeout = 5 * time.Second
)

var _ app.QuoteSource = (*Client)(nil)

// Config holds configuration for the router client.
type Config struct {
	BaseURL           string
	Wallet            string
	Timeout           time.Duration
	RequestsPerMinute int
}

type clientMetrics struct {
	requests metric.Int64Counter
	routes   metric.Int64Histogram
}

// Client queries a swap router for candidate routes.
type Client struct {
	client  httpclient.Client
	config  Config
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[[]routeResponse]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a router client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("router base url is required"))
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("router"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("router")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	c := &Client{
		client:  client,
		config:  cfg,
		logger:  log,
		limiter: ratelimit.New("router", cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[[]routeResponse](cbCfg),
		tracer:  tracer,
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"router_requests_total",
		metric.WithDescription("Route requests by outcome"),
	)
	if err != nil {
		return err
	}

	c.metrics.routes, err = meter.Int64Histogram(
		"router_routes_returned",
		metric.WithDescription("Routes returned per request"),
	)
	return err
}

// GetRoutes implements app.QuoteSource.
func (c *Client) GetRoutes(ctx context.Context, req app.RouteRequest) ([]domain.Route, error) {
	ctx, span := c.tracer.Start(ctx, "router.get_routes",
		trace.WithAttributes(
			attribute.String("input", req.Input.Symbol()),
			attribute.String("output", req.Output.Symbol()),
			attribute.Int64("amount", int64(req.Amount)),
			attribute.String("mode", req.Mode),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		c.record(ctx, "throttled")
		return nil, err
	}

	raw, err := c.breaker.Execute(func() ([]routeResponse, error) {
		return c.fetch(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		if circuitbreaker.IsOpen(err) {
			c.record(ctx, "circuit_open")
			return nil, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext("router"))
		}
		c.record(ctx, "error")
		return nil, err
	}

	routes := make([]domain.Route, 0, len(raw))
	for _, r := range raw {
		route, err := r.toRoute(req.Input, req.Output)
		if err != nil {
			c.logger.Debug(ctx, "skipping unparsable route", "error", err)
			continue
		}
		routes = append(routes, route)
	}

	c.record(ctx, "ok")
	c.metrics.routes.Record(ctx, int64(len(routes)))
	span.SetAttributes(attribute.Int("routes", len(routes)))

	return routes, nil
}

func (c *Client) fetch(ctx context.Context, req app.RouteRequest) ([]routeResponse, error) {
	var result []routeResponse
	_, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "swap"),
			httpclient.NewLabel("mode", req.Mode),
		),
		httpclient.WithResponseErrorHandler(routerErrorHandler),
	).
		SetQueryParams(map[string]string{
			"inputMint":            req.Input.Mint(),
			"outputMint":           req.Output.Mint(),
			"amount":               strconv.FormatUint(req.Amount, 10),
			"slippage":             strconv.Itoa(req.SlippageBps),
			"feeBps":               "0",
			"mode":                 req.Mode,
			"wallet":               c.config.Wallet,
			"otherAmountThreshold": "0",
		}).
		SetResult(&result).
		Get(ctx, swapEndpoint)

	if err != nil {
		return nil, apperror.New(apperror.CodeRouterAPIError,
			apperror.WithCause(err),
			apperror.WithContext("GET "+swapEndpoint))
	}
	return result, nil
}

func (c *Client) record(ctx context.Context, outcome string) {
	c.metrics.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// routerErrorHandler parses router error responses.
func routerErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("router HTTP %d: %s", statusCode, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("router HTTP %d: %s", statusCode, apiErr.Error)
		}
	}
	return fmt.Errorf("router HTTP %d: %s", statusCode, string(body))
}
