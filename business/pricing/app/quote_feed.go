package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/mailbox"
)

const quoteFeedName = "pricing.quote_feed"

// QuoteFeedConfig configures one directional quote poller.
type QuoteFeedConfig struct {
	Pair         domain.Pair
	Side         domain.Side
	Amount       uint64 // native units of the input asset for exact-in
	SlippageBps  int
	Mode         string
	PollInterval time.Duration
	Timeout      time.Duration
	StartupDelay time.Duration
}

type quoteFeedMetrics struct {
	polls    metric.Int64Counter
	failures metric.Int64Counter
}

// QuoteFeed polls a QuoteSource for one side of the pair and publishes the
// best price to a latest-value mailbox.
type QuoteFeed struct {
	cfg    QuoteFeedConfig
	source QuoteSource
	out    *mailbox.Latest[domain.PriceQuote]
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *quoteFeedMetrics
	now     func() time.Time

	lastSuccess atomic.Int64 // unix nanos
}

// NewQuoteFeed creates a QuoteFeed. The mailbox is owned by the feed.
func NewQuoteFeed(cfg QuoteFeedConfig, source QuoteSource, log logger.LoggerInterface) (*QuoteFeed, error) {
	if cfg.PollInterval <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("quote feed poll interval must be positive"))
	}
	if cfg.Amount == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("quote feed amount must be positive"))
	}
	if cfg.Mode == "" {
		cfg.Mode = "ExactIn"
	}

	f := &QuoteFeed{
		cfg:    cfg,
		source: source,
		out:    mailbox.New[domain.PriceQuote](),
		logger: log,
		tracer: otel.Tracer(quoteFeedName),
		now:    time.Now,
	}
	if err := f.initMetrics(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *QuoteFeed) initMetrics() error {
	meter := otel.Meter(quoteFeedName)
	var err error

	f.metrics = &quoteFeedMetrics{}

	f.metrics.polls, err = meter.Int64Counter(
		"quote_polls_total",
		metric.WithDescription("Quote polls attempted"),
	)
	if err != nil {
		return err
	}

	f.metrics.failures, err = meter.Int64Counter(
		"quote_poll_failures_total",
		metric.WithDescription("Quote polls that produced no price"),
	)
	return err
}

// Side returns the side this feed prices.
func (f *QuoteFeed) Side() domain.Side {
	return f.cfg.Side
}

// Mailbox returns the feed's output.
func (f *QuoteFeed) Mailbox() *mailbox.Latest[domain.PriceQuote] {
	return f.out
}

// LastSuccess returns when the last quote was published; zero if never.
func (f *QuoteFeed) LastSuccess() time.Time {
	n := f.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Poll performs one bounded request and returns the best quote.
// Any collaborator error, timeout or empty answer is QUOTE_UNAVAILABLE.
func (f *QuoteFeed) Poll(ctx context.Context) (domain.PriceQuote, error) {
	attrs := []attribute.KeyValue{attribute.String("side", string(f.cfg.Side))}
	ctx, span := f.tracer.Start(ctx, "quote_feed.poll", trace.WithAttributes(attrs...))
	defer span.End()

	f.metrics.polls.Add(ctx, 1, metric.WithAttributes(attrs...))

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req := RouteRequest{
		Input:       f.cfg.Pair.Input(f.cfg.Side),
		Output:      f.cfg.Pair.Output(f.cfg.Side),
		Amount:      f.cfg.Amount,
		SlippageBps: f.cfg.SlippageBps,
		Mode:        f.cfg.Mode,
	}

	routes, err := f.source.GetRoutes(ctx, req)
	if err != nil {
		f.metrics.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		return domain.PriceQuote{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(string(f.cfg.Side)+" routes"))
	}

	observedAt := f.now()
	best, price, err := domain.BestRoute(f.cfg.Side, routes, observedAt)
	if err != nil {
		f.metrics.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
		return domain.PriceQuote{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(string(f.cfg.Side)+" routes"))
	}

	return domain.PriceQuote{
		Pair:       f.cfg.Pair,
		Side:       f.cfg.Side,
		Price:      price,
		Route:      best,
		ObservedAt: observedAt,
	}, nil
}

// Run polls on a fixed interval until ctx is cancelled. A failed poll is
// logged and skipped; it never stops the loop.
func (f *QuoteFeed) Run(ctx context.Context) error {
	if f.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.cfg.StartupDelay):
		}
	}

	f.logger.Info(ctx, "quote feed started",
		"side", f.cfg.Side,
		"pair", f.cfg.Pair.String(),
		"interval", f.cfg.PollInterval)

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		f.pollOnce(ctx)

		select {
		case <-ctx.Done():
			f.logger.Info(ctx, "quote feed stopped", "side", f.cfg.Side)
			return nil
		case <-ticker.C:
		}
	}
}

func (f *QuoteFeed) pollOnce(ctx context.Context) {
	quote, err := f.Poll(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		f.logger.Warn(ctx, "quote unavailable", apperror.LogArgs(err)...)
		return
	}

	f.out.Publish(quote)
	f.lastSuccess.Store(quote.ObservedAt.UnixNano())
	f.logger.Debug(ctx, "quote published",
		"side", quote.Side,
		"price", quote.Price.StringFixed(6),
		"in", quote.Route.In.String(),
		"out", quote.Route.Out.String())
}
