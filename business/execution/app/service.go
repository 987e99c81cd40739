package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const serviceName = "execution.service"

type serviceMetrics struct {
	legs      metric.Int64Counter
	positions metric.Int64Counter
}

// ExecutionService validates and instruments calls into the configured venue.
type ExecutionService struct {
	venue  Venue
	mode   string
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewExecutionService creates a new ExecutionService. mode names the venue
// for logs and the dashboard.
func NewExecutionService(venue Venue, mode string, log logger.LoggerInterface) (*ExecutionService, error) {
	s := &ExecutionService{
		venue:  venue,
		mode:   mode,
		logger: log,
		tracer: otel.Tracer(serviceName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ExecutionService) initMetrics() error {
	meter := otel.Meter(serviceName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.legs, err = meter.Int64Counter(
		"execution_legs_total",
		metric.WithDescription("Trade legs submitted by kind and outcome"),
	)
	if err != nil {
		return err
	}

	s.metrics.positions, err = meter.Int64Counter(
		"execution_position_reads_total",
		metric.WithDescription("Position reads by outcome"),
	)
	return err
}

// Mode returns the venue mode.
func (s *ExecutionService) Mode() string {
	return s.mode
}

// PlacePerpOrder validates and dispatches a perp order.
func (s *ExecutionService) PlacePerpOrder(ctx context.Context, order domain.PerpOrder) (domain.Signature, error) {
	ctx, span := s.tracer.Start(ctx, "execution.place_perp_order",
		trace.WithAttributes(
			attribute.String("market", order.Market),
			attribute.String("side", string(order.Side)),
			attribute.Int64("size_lots", order.SizeLots),
		),
	)
	defer span.End()

	if err := order.Validate(); err != nil {
		s.record(ctx, "perp", "invalid")
		return "", apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithCause(err),
			apperror.WithContext("perp order"))
	}

	sig, err := s.venue.PlacePerpOrder(ctx, order)
	if err != nil {
		span.RecordError(err)
		s.record(ctx, "perp", "error")
		return "", err
	}

	s.record(ctx, "perp", "ok")
	s.logger.Debug(ctx, "perp order dispatched",
		"side", order.Side,
		"size_lots", order.SizeLots,
		"client_order_id", order.ClientOrderID,
		"signature", sig)
	return sig, nil
}

// Swap validates and executes a swap, blocking until it is confirmed.
func (s *ExecutionService) Swap(ctx context.Context, req domain.SwapRequest) (domain.Signature, error) {
	ctx, span := s.tracer.Start(ctx, "execution.swap",
		trace.WithAttributes(
			attribute.String("input", req.InputMint),
			attribute.String("output", req.OutputMint),
			attribute.Int64("amount", int64(req.NativeAmount)),
			attribute.String("mode", req.Mode()),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		s.record(ctx, "swap", "invalid")
		return "", apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithCause(err),
			apperror.WithContext("swap"))
	}

	sig, err := s.venue.Swap(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.record(ctx, "swap", "error")
		return "", err
	}

	s.record(ctx, "swap", "ok")
	s.logger.Debug(ctx, "swap confirmed", "mode", req.Mode(), "amount", req.NativeAmount, "signature", sig)
	return sig, nil
}

// PositionBaseUI reads the net position. Any failure is POSITION_FETCH_FAILED.
func (s *ExecutionService) PositionBaseUI(ctx context.Context) (decimal.Decimal, bool, error) {
	base, exists, err := s.venue.PositionBaseUI(ctx)
	if err != nil {
		s.metrics.positions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		if apperror.IsCode(err, apperror.CodePositionFetchFailed) {
			return decimal.Zero, false, err
		}
		return decimal.Zero, false, apperror.New(apperror.CodePositionFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(s.mode))
	}
	s.metrics.positions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	return base, exists, nil
}

func (s *ExecutionService) record(ctx context.Context, kind, outcome string) {
	s.metrics.legs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
