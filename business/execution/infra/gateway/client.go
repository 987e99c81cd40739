// Package gateway implements the execution ports against an external signing
// and submission service.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/app"
	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/perp-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const (
	tracerName = "execution.gateway"

	perpOrdersEndpoint = "/perp/orders"
	swapsEndpoint      = "/swaps"
	positionsEndpoint  = "/positions/"

	defaultTimeout = 30 * time.Second
)

var _ app.Venue = (*Client)(nil)

// Config holds configuration for the gateway client.
type Config struct {
	BaseURL string
	APIKey  string
	Market  string
	Timeout time.Duration
}

// Client submits legs to the execution gateway.
type Client struct {
	client httpclient.Client
	config Config
	logger logger.LoggerInterface
	orders *circuitbreaker.CircuitBreaker[signatureResponse]
	reads  *circuitbreaker.CircuitBreaker[*positionResponse]
	tracer trace.Tracer
}

// NewClient creates a gateway client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("execution gateway url is required"))
	}
	if cfg.Market == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("execution gateway market is required"))
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	tracer := otel.Tracer(tracerName)

	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers["X-API-Key"] = cfg.APIKey
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("execution_gateway"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	onChange := func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	ordersCfg := circuitbreaker.DefaultConfig("gateway_orders")
	ordersCfg.OnStateChange = onChange
	readsCfg := circuitbreaker.DefaultConfig("gateway_positions")
	readsCfg.OnStateChange = onChange

	return &Client{
		client: client,
		config: cfg,
		logger: log,
		orders: circuitbreaker.New[signatureResponse](ordersCfg),
		reads:  circuitbreaker.New[*positionResponse](readsCfg),
		tracer: tracer,
	}, nil
}

// PlacePerpOrder implements app.Executor.
func (c *Client) PlacePerpOrder(ctx context.Context, order domain.PerpOrder) (domain.Signature, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.place_perp_order",
		trace.WithAttributes(attribute.String("side", string(order.Side))))
	defer span.End()

	return c.submit(ctx, perpOrdersEndpoint, newPerpOrderRequest(order))
}

// Swap implements app.Executor. The gateway answers once the swap is confirmed.
func (c *Client) Swap(ctx context.Context, req domain.SwapRequest) (domain.Signature, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.swap",
		trace.WithAttributes(attribute.String("mode", req.Mode())))
	defer span.End()

	return c.submit(ctx, swapsEndpoint, newSwapRequest(req))
}

func (c *Client) submit(ctx context.Context, endpoint string, body any) (domain.Signature, error) {
	res, err := c.orders.Execute(func() (signatureResponse, error) {
		var result signatureResponse
		_, err := c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
			httpclient.WithResponseErrorHandler(gatewayErrorHandler),
		).
			SetBody(body).
			SetResult(&result).
			Post(ctx, endpoint)
		if err != nil {
			return signatureResponse{}, err
		}
		if result.Signature == "" {
			return signatureResponse{}, fmt.Errorf("gateway returned no signature")
		}
		return result, nil
	})
	if err != nil {
		return "", c.wrap(err, "POST "+endpoint)
	}
	return domain.Signature(res.Signature), nil
}

// PositionBaseUI implements app.PositionReader.
func (c *Client) PositionBaseUI(ctx context.Context) (decimal.Decimal, bool, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.position")
	defer span.End()

	endpoint := positionsEndpoint + url.PathEscape(c.config.Market)
	res, err := c.reads.Execute(func() (*positionResponse, error) {
		var result positionResponse
		resp, err := c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "positions")),
			httpclient.WithResponseErrorHandler(positionErrorHandler),
		).
			SetResult(&result).
			Get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return &result, nil
	})
	if err != nil {
		return decimal.Zero, false, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithCause(c.wrap(err, "GET "+endpoint)))
	}
	if res == nil {
		return decimal.Zero, false, nil
	}

	base, err := decimal.NewFromString(res.BasePositionUI)
	if err != nil {
		return decimal.Zero, false, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("unparsable basePositionUi "+res.BasePositionUI))
	}
	return base, true, nil
}

func (c *Client) wrap(err error, op string) error {
	if circuitbreaker.IsOpen(err) {
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext("execution gateway"))
	}
	return apperror.New(apperror.CodeExecutionGatewayError,
		apperror.WithCause(err),
		apperror.WithContext(op))
}

// gatewayErrorHandler parses gateway error responses.
func gatewayErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("gateway HTTP %d: %s", statusCode, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("gateway HTTP %d: %s", statusCode, apiErr.Error)
		}
	}
	return fmt.Errorf("gateway HTTP %d: %s", statusCode, string(body))
}

// positionErrorHandler treats 404 as "no position".
func positionErrorHandler(statusCode int, body []byte) error {
	if statusCode == http.StatusNotFound {
		return nil
	}
	return gatewayErrorHandler(statusCode, body)
}
