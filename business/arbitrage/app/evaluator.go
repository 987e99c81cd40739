package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const evaluatorName = "arbitrage.evaluator"

// EvaluatorConfig holds the trading parameters.
type EvaluatorConfig struct {
	Threshold          decimal.Decimal
	BaseQty            decimal.Decimal
	AllowanceThreshold decimal.Decimal
	ScanInterval       time.Duration
	StaleTimeout       time.Duration
	Cooldown           time.Duration
	StartupDelay       time.Duration
	DryRun             bool
}

// TradeRunner executes a trade for an evaluation.
type TradeRunner interface {
	Execute(ctx context.Context, eval *domain.Evaluation) (*domain.Trade, error)
}

type evaluatorMetrics struct {
	evaluations metric.Int64Counter
	spread      metric.Float64Histogram
}

// directionStats counts outcomes for one direction.
type directionStats struct {
	evaluations atomic.Int64
	profitable  atomic.Int64
	trades      atomic.Int64
	dryRuns     atomic.Int64
	skipped     atomic.Int64
}

// DirectionStats is a point-in-time copy of one direction's counters.
type DirectionStats struct {
	Evaluations int64
	Profitable  int64
	Trades      int64
	DryRuns     int64
	Skipped     int64
	Last        *domain.Evaluation
}

// Stats is a point-in-time copy of every counter.
type Stats struct {
	Directions map[domain.Direction]DirectionStats
	Trades     map[domain.TradeStatus]int64
}

// Evaluator runs one loop per direction. Each tick reads the position, drains
// the direction's quote mailbox, reads the opposing book snapshot and decides
// whether to trade.
type Evaluator struct {
	cfg       EvaluatorConfig
	quotes    map[domain.Direction]QuoteMailbox
	book      BookReader
	positions PositionReader
	trader    TradeRunner
	reporter  Reporter
	cooldown  *domain.Cooldown
	logger    logger.LoggerInterface

	metrics *evaluatorMetrics
	now     func() time.Time

	stats  map[domain.Direction]*directionStats
	lastMu sync.RWMutex
	last   map[domain.Direction]*domain.Evaluation
}

// NewEvaluator creates an Evaluator. buyQuotes feeds BuyLowSellHigh and
// sellQuotes feeds BuyHighSellLow.
func NewEvaluator(
	cfg EvaluatorConfig,
	buyQuotes, sellQuotes QuoteMailbox,
	book BookReader,
	positions PositionReader,
	trader TradeRunner,
	reporter Reporter,
	log logger.LoggerInterface,
) (*Evaluator, error) {
	if cfg.ScanInterval <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("scan interval must be positive"))
	}
	if cfg.StaleTimeout <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("stale timeout must be positive"))
	}

	e := &Evaluator{
		cfg: cfg,
		quotes: map[domain.Direction]QuoteMailbox{
			domain.BuyLowSellHigh: buyQuotes,
			domain.BuyHighSellLow: sellQuotes,
		},
		book:      book,
		positions: positions,
		trader:    trader,
		reporter:  reporter,
		cooldown:  domain.NewCooldown(cfg.Cooldown),
		logger:    log,
		now:       time.Now,
		stats:     make(map[domain.Direction]*directionStats, len(domain.Directions)),
		last:      make(map[domain.Direction]*domain.Evaluation, len(domain.Directions)),
	}
	for _, d := range domain.Directions {
		e.stats[d] = &directionStats{}
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) initMetrics() error {
	meter := otel.Meter(evaluatorName)
	var err error

	e.metrics = &evaluatorMetrics{}

	e.metrics.evaluations, err = meter.Int64Counter(
		"arbitrage_evaluations_total",
		metric.WithDescription("Evaluations by direction and decision"),
	)
	if err != nil {
		return err
	}

	e.metrics.spread, err = meter.Float64Histogram(
		"arbitrage_spread_bps",
		metric.WithDescription("Observed directional spread in basis points"),
	)
	return err
}

// Run starts both directional loops and blocks until ctx is cancelled.
func (e *Evaluator) Run(ctx context.Context) error {
	if e.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.cfg.StartupDelay):
		}
	}

	e.logger.Info(ctx, "evaluator started",
		"threshold", e.cfg.Threshold.String(),
		"base_qty", e.cfg.BaseQty.String(),
		"dry_run", e.cfg.DryRun,
		"interval", e.cfg.ScanInterval)

	p := pool.New().WithContext(ctx)
	for _, d := range domain.Directions {
		p.Go(func(ctx context.Context) error {
			e.loop(ctx, d)
			return nil
		})
	}
	return p.Wait()
}

func (e *Evaluator) loop(ctx context.Context, d domain.Direction) {
	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx, d)
		}
	}
}

// Tick runs one evaluation for d and trades when it decides to.
func (e *Evaluator) Tick(ctx context.Context, d domain.Direction) *domain.Evaluation {
	eval := e.Evaluate(ctx, d)
	e.record(ctx, eval)

	if eval.Decision != domain.DecisionTrade {
		return eval
	}

	// Armed before the legs run so a slow or failed trade still cools down.
	e.cooldown.Arm(d, e.now())
	e.stats[d].trades.Add(1)

	trade, err := e.trader.Execute(ctx, eval)
	if trade == nil {
		return eval
	}
	e.reporter.ReportTrade(trade)
	if apperror.IsCode(err, apperror.CodeDanglingExposure) {
		e.reporter.ReportAlert(domain.NewAlert(err, trade.ID, e.now()))
	}
	return eval
}

// Evaluate decides what d should do now. Apart from reading the position and
// draining the quote mailbox it has no side effects.
func (e *Evaluator) Evaluate(ctx context.Context, d domain.Direction) *domain.Evaluation {
	now := e.now()
	params := d.Params()
	eval := &domain.Evaluation{
		Direction: d,
		At:        now,
		Threshold: e.cfg.Threshold,
	}

	base, exists, err := e.positions.PositionBaseUI(ctx)
	if err != nil {
		eval.Allowance = domain.NoAllowance
		eval.Decision = domain.DecisionPositionUnknown
		e.logger.Warn(ctx, "position read failed", append([]any{"direction", d.ShortString()}, apperror.LogArgs(err)...)...)
		return eval
	}
	eval.Allowance = domain.AllowanceFor(base, exists, e.cfg.AllowanceThreshold)
	if !eval.Allowance.Permits(params.Requires) {
		eval.Decision = domain.DecisionNotAllowed
		return eval
	}

	quote, ok := e.quotes[d].DrainLatest()
	if !ok {
		eval.Decision = domain.DecisionNoQuote
		return eval
	}

	snap, ok := e.book.ReadFresh(params.BookSide, e.cfg.StaleTimeout, now)
	if !ok {
		eval.Decision = domain.DecisionNoBook
		return eval
	}

	eval.SwapPrice = quote.Price
	eval.QuoteAge = quote.Age(now)
	eval.PerpPrice = snap.Price
	eval.BookVersion = snap.Version
	eval.Spread = d.Spread(quote.Price, snap.Price)
	eval.Profit = domain.EstimateProfit(eval.Spread, e.cfg.BaseQty)

	switch {
	case !eval.Spread.IsProfitable(e.cfg.Threshold):
		eval.Decision = domain.DecisionBelowThreshold
	case !e.cooldown.Ready(d, now):
		eval.Decision = domain.DecisionCooldown
	case e.cfg.DryRun:
		eval.Decision = domain.DecisionDryRun
	default:
		eval.Decision = domain.DecisionTrade
	}
	return eval
}

func (e *Evaluator) record(ctx context.Context, eval *domain.Evaluation) {
	d := eval.Direction
	st := e.stats[d]
	st.evaluations.Add(1)

	attrs := metric.WithAttributes(
		attribute.String("direction", d.ShortString()),
		attribute.String("decision", string(eval.Decision)),
	)
	e.metrics.evaluations.Add(ctx, 1, attrs)

	if eval.Decision.Priced() {
		bps, _ := eval.Spread.BasisPoints.Float64()
		e.metrics.spread.Record(ctx, bps, metric.WithAttributes(attribute.String("direction", d.ShortString())))
		if eval.IsProfitable() {
			st.profitable.Add(1)
		}
		if eval.Decision == domain.DecisionDryRun {
			st.dryRuns.Add(1)
		}
		e.logger.Info(ctx, eval.Summary(),
			"direction", d.ShortString(),
			"spread_bps", eval.Spread.BasisPoints.StringFixed(2),
			"decision", eval.Decision,
			"book_version", eval.BookVersion)
	} else {
		st.skipped.Add(1)
		e.logger.Debug(ctx, eval.Summary(),
			"direction", d.ShortString(),
			"decision", eval.Decision,
			"allowance", eval.Allowance.String())
	}

	e.lastMu.Lock()
	e.last[d] = eval
	e.lastMu.Unlock()

	e.reporter.ReportEvaluation(eval)
}

// Last returns the most recent evaluation for d, or nil.
func (e *Evaluator) Last(d domain.Direction) *domain.Evaluation {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last[d]
}

// Stats returns the evaluation counters.
func (e *Evaluator) Stats() Stats {
	out := Stats{Directions: make(map[domain.Direction]DirectionStats, len(e.stats))}
	for d, st := range e.stats {
		out.Directions[d] = DirectionStats{
			Evaluations: st.evaluations.Load(),
			Profitable:  st.profitable.Load(),
			Trades:      st.trades.Load(),
			DryRuns:     st.dryRuns.Load(),
			Skipped:     st.skipped.Load(),
			Last:        e.Last(d),
		}
	}
	return out
}
