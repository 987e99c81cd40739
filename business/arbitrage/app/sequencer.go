package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
	"github.com/fd1az/perp-arbitrage-bot/internal/numeric"
)

const sequencerName = "arbitrage.sequencer"

// SequencerConfig describes the market and the fixed trade size.
type SequencerConfig struct {
	Market        string
	BaseMint      string
	QuoteMint     string
	BaseDecimals  int32
	QuoteDecimals int32
	BaseLotSize   int64
	QuoteLotSize  int64

	BaseQty        decimal.Decimal
	MaxQuoteAmount decimal.Decimal
	SlippageBps    int
}

type sequencerMetrics struct {
	trades metric.Int64Counter
}

// Sequencer runs the two legs of a trade in the order its direction demands.
// Legs are never retried.
type Sequencer struct {
	cfg      SequencerConfig
	executor Executor
	journal  Journal
	alerters []Alerter
	logger   logger.LoggerInterface

	sizeLots     int64
	nativeAmount uint64
	maxQuoteLots int64

	tracer  trace.Tracer
	metrics *sequencerMetrics
	now     func() time.Time

	lastOrderID atomic.Uint64

	mu     sync.Mutex
	counts map[domain.TradeStatus]int64
}

// NewSequencer creates a Sequencer. Trade sizes are converted once here;
// a size that rounds to zero lots is a configuration error.
func NewSequencer(cfg SequencerConfig, executor Executor, journal Journal, log logger.LoggerInterface, alerters ...Alerter) (*Sequencer, error) {
	sizeLots, err := numeric.ToLotSize(cfg.BaseDecimals, cfg.BaseLotSize, cfg.BaseQty)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidTradeSize, apperror.WithCause(err), apperror.WithContext("base lots"))
	}
	native, err := numeric.ToNativeAmount(cfg.BaseDecimals, cfg.BaseQty)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidTradeSize, apperror.WithCause(err), apperror.WithContext("base native amount"))
	}
	maxQuoteLots, err := numeric.ToQuoteLots(cfg.QuoteDecimals, cfg.QuoteLotSize, cfg.MaxQuoteAmount)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidTradeSize, apperror.WithCause(err), apperror.WithContext("max quote lots"))
	}
	if sizeLots == 0 || native == 0 || maxQuoteLots == 0 {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("trade size "+cfg.BaseQty.String()+" is below one lot"))
	}

	s := &Sequencer{
		cfg:          cfg,
		executor:     executor,
		journal:      journal,
		alerters:     alerters,
		logger:       log,
		sizeLots:     sizeLots,
		nativeAmount: native,
		maxQuoteLots: maxQuoteLots,
		tracer:       otel.Tracer(sequencerName),
		now:          time.Now,
		counts:       make(map[domain.TradeStatus]int64),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sequencer) initMetrics() error {
	meter := otel.Meter(sequencerName)
	var err error

	s.metrics = &sequencerMetrics{}

	s.metrics.trades, err = meter.Int64Counter(
		"arbitrage_trades_total",
		metric.WithDescription("Trades by direction and final status"),
	)
	return err
}

// SizeLots returns the perp order size in base lots.
func (s *Sequencer) SizeLots() int64 { return s.sizeLots }

// NativeAmount returns the swap size in native base units.
func (s *Sequencer) NativeAmount() uint64 { return s.nativeAmount }

// MaxQuoteLots returns the perp order quote cap.
func (s *Sequencer) MaxQuoteLots() int64 { return s.maxQuoteLots }

// Counts returns how many trades ended in each status.
func (s *Sequencer) Counts() map[domain.TradeStatus]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.TradeStatus]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Execute runs the trade for eval. The returned error is TRADE_LEG_FAILED when
// the first leg failed and DANGLING_EXPOSURE when only one leg went through.
// The trade record is always returned.
func (s *Sequencer) Execute(ctx context.Context, eval *domain.Evaluation) (*domain.Trade, error) {
	ctx, span := s.tracer.Start(ctx, "arbitrage.execute",
		trace.WithAttributes(attribute.String("direction", string(eval.Direction))))
	defer span.End()

	trade := domain.NewTrade(uuid.NewString(), eval, s.cfg.BaseQty, s.now())
	params := eval.Direction.Params()

	var err error
	if params.SwapFirst {
		err = s.swapThenPerp(ctx, trade, params)
	} else {
		err = s.perpThenSwap(ctx, trade, params)
	}
	if err != nil {
		span.RecordError(err)
		var appErr *apperror.AppError
		if sc := span.SpanContext(); sc.HasTraceID() && errors.As(err, &appErr) {
			appErr.WithTraceID(sc.TraceID().String())
		}
	}

	s.finish(ctx, trade, err)
	return trade, err
}

// swapThenPerp buys base on the swap venue, waits for confirmation, then
// sells it on the perp book.
func (s *Sequencer) swapThenPerp(ctx context.Context, trade *domain.Trade, params domain.DirectionParams) error {
	swap, err := s.swapLeg(ctx, trade, "buy", execDomain.SwapRequest{
		InputMint:    s.cfg.QuoteMint,
		OutputMint:   s.cfg.BaseMint,
		NativeAmount: s.nativeAmount,
		SlippageBps:  s.cfg.SlippageBps,
		ExactIn:      false,
	})
	if err != nil {
		trade.Finish(domain.TradeAborted, err, s.now())
		return apperror.New(apperror.CodeTradeLegFailed,
			apperror.WithCause(err),
			apperror.WithContext("swap buy"))
	}

	if _, err := s.perpLeg(ctx, trade, params.PerpSide); err != nil {
		// The swap is final; the base bought is now unhedged.
		trade.Finish(domain.TradeDangling, err, s.now())
		return apperror.New(apperror.CodeDanglingExposure,
			apperror.WithCause(err),
			apperror.WithContext("perp "+string(params.PerpSide)+" failed after swap "+swap.String()))
	}

	trade.Finish(domain.TradeCompleted, nil, s.now())
	return nil
}

// perpThenSwap dispatches the perp bid without waiting for the fill, then
// sells base on the swap venue.
func (s *Sequencer) perpThenSwap(ctx context.Context, trade *domain.Trade, params domain.DirectionParams) error {
	perp, err := s.perpLeg(ctx, trade, params.PerpSide)
	if err != nil {
		trade.Finish(domain.TradeAborted, err, s.now())
		return apperror.New(apperror.CodeTradeLegFailed,
			apperror.WithCause(err),
			apperror.WithContext("perp "+string(params.PerpSide)))
	}

	if _, err := s.swapLeg(ctx, trade, "sell", execDomain.SwapRequest{
		InputMint:    s.cfg.BaseMint,
		OutputMint:   s.cfg.QuoteMint,
		NativeAmount: s.nativeAmount,
		SlippageBps:  s.cfg.SlippageBps,
		ExactIn:      true,
	}); err != nil {
		trade.Finish(domain.TradeDangling, err, s.now())
		return apperror.New(apperror.CodeDanglingExposure,
			apperror.WithCause(err),
			apperror.WithContext("swap sell failed after perp "+perp.String()))
	}

	trade.Finish(domain.TradeCompleted, nil, s.now())
	return nil
}

func (s *Sequencer) swapLeg(ctx context.Context, trade *domain.Trade, side string, req execDomain.SwapRequest) (execDomain.Signature, error) {
	start := s.now()
	sig, err := s.executor.Swap(ctx, req)
	trade.Legs = append(trade.Legs, legResult(domain.LegSwap, side, sig, err, s.now().Sub(start)))
	return sig, err
}

func (s *Sequencer) perpLeg(ctx context.Context, trade *domain.Trade, side execDomain.PerpSide) (execDomain.Signature, error) {
	start := s.now()
	sig, err := s.executor.PlacePerpOrder(ctx, execDomain.PerpOrder{
		Market:        s.cfg.Market,
		Side:          side,
		SizeLots:      s.sizeLots,
		MaxQuoteLots:  s.maxQuoteLots,
		ClientOrderID: s.nextClientOrderID(),
		OrderType:     execDomain.OrderTypeMarket,
	})
	trade.Legs = append(trade.Legs, legResult(domain.LegPerp, string(side), sig, err, s.now().Sub(start)))
	return sig, err
}

func legResult(kind domain.LegKind, side string, sig execDomain.Signature, err error, elapsed time.Duration) domain.LegResult {
	l := domain.LegResult{Kind: kind, Side: side, Signature: sig, Elapsed: elapsed}
	if err != nil {
		l.Error = err.Error()
	}
	return l
}

// nextClientOrderID returns the current time in microseconds, bumped so two
// orders never share an id.
func (s *Sequencer) nextClientOrderID() uint64 {
	for {
		last := s.lastOrderID.Load()
		id := uint64(s.now().UnixMicro())
		if id <= last {
			id = last + 1
		}
		if s.lastOrderID.CompareAndSwap(last, id) {
			return id
		}
	}
}

func (s *Sequencer) finish(ctx context.Context, trade *domain.Trade, err error) {
	s.mu.Lock()
	s.counts[trade.Status]++
	s.mu.Unlock()

	s.metrics.trades.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", string(trade.Direction)),
		attribute.String("status", string(trade.Status)),
	))

	if s.journal != nil {
		if jerr := s.journal.Record(ctx, trade); jerr != nil {
			s.logger.Warn(ctx, "trade journal write failed", "trade_id", trade.ID, "error", jerr)
		}
	}

	switch {
	case err == nil:
		s.logger.Info(ctx, "trade completed",
			"trade_id", trade.ID,
			"direction", trade.Direction.ShortString(),
			"legs", len(trade.Legs))
	case apperror.IsCode(err, apperror.CodeDanglingExposure):
		args := append([]any{"trade_id", trade.ID, "direction", trade.Direction.ShortString()}, apperror.LogArgs(err)...)
		s.logger.Error(ctx, "dangling exposure", args...)
		s.alert(ctx, domain.NewAlert(err, trade.ID, s.now()))
	default:
		args := append([]any{"trade_id", trade.ID, "direction", trade.Direction.ShortString()}, apperror.LogArgs(err)...)
		s.logger.Error(ctx, "trade aborted", args...)
	}
}

func (s *Sequencer) alert(ctx context.Context, a domain.Alert) {
	for _, al := range s.alerters {
		if err := al.Alert(ctx, a); err != nil {
			s.logger.Warn(ctx, "alert delivery failed", "code", a.Code, "error", err)
		}
	}
}
