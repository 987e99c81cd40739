package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const (
	testMarket    = "ESdnpnNLgTkBCZRuTJkZLi5wKEZ2z47SG3PJrhundSQ2"
	testBaseMint  = "So11111111111111111111111111111111111111112"
	testQuoteMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testSequencerConfig() SequencerConfig {
	return SequencerConfig{
		Market:         testMarket,
		BaseMint:       testBaseMint,
		QuoteMint:      testQuoteMint,
		BaseDecimals:   9,
		QuoteDecimals:  6,
		BaseLotSize:    10_000_000,
		QuoteLotSize:   10,
		BaseQty:        decimal.RequireFromString("0.1"),
		MaxQuoteAmount: decimal.RequireFromString("100"),
		SlippageBps:    5,
	}
}

func newTestSequencer(t *testing.T, exec Executor, journal Journal, alerters ...Alerter) *Sequencer {
	t.Helper()
	s, err := NewSequencer(testSequencerConfig(), exec, journal, logger.Nop{}, alerters...)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func evalFor(d domain.Direction) *domain.Evaluation {
	e := &domain.Evaluation{
		Direction: d,
		Decision:  domain.DecisionTrade,
		SwapPrice: decimal.RequireFromString("100"),
		PerpPrice: decimal.RequireFromString("100.5"),
	}
	e.Spread = d.Spread(e.SwapPrice, e.PerpPrice)
	return e
}

func TestNewSequencer_Sizes(t *testing.T) {
	s := newTestSequencer(t, &fakeExecutor{}, nil)

	if got := s.SizeLots(); got != 10 {
		t.Errorf("SizeLots() = %d, want 10", got)
	}
	if got := s.NativeAmount(); got != 100_000_000 {
		t.Errorf("NativeAmount() = %d, want 100000000", got)
	}
	if got := s.MaxQuoteLots(); got != 10_000_000 {
		t.Errorf("MaxQuoteLots() = %d, want 10000000", got)
	}
}

func TestNewSequencer_BelowOneLot(t *testing.T) {
	cfg := testSequencerConfig()
	cfg.BaseQty = decimal.RequireFromString("0.001")

	_, err := NewSequencer(cfg, &fakeExecutor{}, nil, logger.Nop{})
	if !apperror.IsCode(err, apperror.CodeInvalidTradeSize) {
		t.Errorf("error = %v, want INVALID_TRADE_SIZE", err)
	}
}

func TestSequencer_Execute(t *testing.T) {
	legErr := errors.New("venue said no")

	tests := []struct {
		name       string
		direction  domain.Direction
		swapErr    error
		perpErr    error
		wantCalls  []string
		wantStatus domain.TradeStatus
		wantCode   apperror.Code
		wantAlert  bool
	}{
		{
			name:       "blsh_completed",
			direction:  domain.BuyLowSellHigh,
			wantCalls:  []string{"swap:ExactOut", "perp:ask"},
			wantStatus: domain.TradeCompleted,
		},
		{
			name:       "blsh_swap_fails_aborts",
			direction:  domain.BuyLowSellHigh,
			swapErr:    legErr,
			wantCalls:  []string{"swap:ExactOut"},
			wantStatus: domain.TradeAborted,
			wantCode:   apperror.CodeTradeLegFailed,
		},
		{
			name:       "blsh_perp_fails_dangles",
			direction:  domain.BuyLowSellHigh,
			perpErr:    legErr,
			wantCalls:  []string{"swap:ExactOut", "perp:ask"},
			wantStatus: domain.TradeDangling,
			wantCode:   apperror.CodeDanglingExposure,
			wantAlert:  true,
		},
		{
			name:       "bhsl_completed",
			direction:  domain.BuyHighSellLow,
			wantCalls:  []string{"perp:bid", "swap:ExactIn"},
			wantStatus: domain.TradeCompleted,
		},
		{
			name:       "bhsl_perp_fails_aborts",
			direction:  domain.BuyHighSellLow,
			perpErr:    legErr,
			wantCalls:  []string{"perp:bid"},
			wantStatus: domain.TradeAborted,
			wantCode:   apperror.CodeTradeLegFailed,
		},
		{
			name:       "bhsl_swap_fails_dangles",
			direction:  domain.BuyHighSellLow,
			swapErr:    legErr,
			wantCalls:  []string{"perp:bid", "swap:ExactIn"},
			wantStatus: domain.TradeDangling,
			wantCode:   apperror.CodeDanglingExposure,
			wantAlert:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{swapErr: tt.swapErr, perpErr: tt.perpErr}
			journal := &fakeJournal{}
			alerter := &fakeAlerter{}
			s := newTestSequencer(t, exec, journal, alerter)

			trade, err := s.Execute(context.Background(), evalFor(tt.direction))

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Execute() error = %v", err)
				}
			} else if !apperror.IsCode(err, tt.wantCode) {
				t.Fatalf("Execute() error = %v, want %s", err, tt.wantCode)
			}
			if !errors.Is(err, legErr) && tt.wantCode != "" {
				t.Error("leg error should be kept as the cause")
			}

			if got := exec.callLog(); !reflect.DeepEqual(got, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
			if trade.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", trade.Status, tt.wantStatus)
			}
			if len(trade.Legs) != len(tt.wantCalls) {
				t.Errorf("legs = %d, want %d", len(trade.Legs), len(tt.wantCalls))
			}
			if len(journal.trades) != 1 {
				t.Errorf("journal entries = %d, want 1", len(journal.trades))
			}
			if got := len(alerter.alerts) == 1; got != tt.wantAlert {
				t.Errorf("alert sent = %v, want %v", got, tt.wantAlert)
			}
			if s.Counts()[tt.wantStatus] != 1 {
				t.Errorf("Counts()[%s] = %d, want 1", tt.wantStatus, s.Counts()[tt.wantStatus])
			}
		})
	}
}

func TestSequencer_DanglingErrorCarriesTraceID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	s := newTestSequencer(t, &fakeExecutor{perpErr: errors.New("perp rejected")}, nil)
	s.tracer = tp.Tracer("test")

	_, err := s.Execute(context.Background(), evalFor(domain.BuyLowSellHigh))

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Execute() error = %v, want *AppError", err)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if want := spans[0].SpanContext().TraceID().String(); appErr.TraceID != want {
		t.Errorf("TraceID = %q, want %q", appErr.TraceID, want)
	}
}

func TestSequencer_NoTraceIDWithoutRecordingSpan(t *testing.T) {
	s := newTestSequencer(t, &fakeExecutor{perpErr: errors.New("perp rejected")}, nil)

	_, err := s.Execute(context.Background(), evalFor(domain.BuyLowSellHigh))

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Execute() error = %v, want *AppError", err)
	}
	if appErr.TraceID != "" {
		t.Errorf("TraceID = %q, want empty under the no-op tracer", appErr.TraceID)
	}
}

func TestSequencer_LegShapes(t *testing.T) {
	exec := &fakeExecutor{}
	s := newTestSequencer(t, exec, nil)

	if _, err := s.Execute(context.Background(), evalFor(domain.BuyLowSellHigh)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := s.Execute(context.Background(), evalFor(domain.BuyHighSellLow)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	buy, sell := exec.swaps[0], exec.swaps[1]
	wantBuy := execDomain.SwapRequest{InputMint: testQuoteMint, OutputMint: testBaseMint, NativeAmount: 100_000_000, SlippageBps: 5, ExactIn: false}
	wantSell := execDomain.SwapRequest{InputMint: testBaseMint, OutputMint: testQuoteMint, NativeAmount: 100_000_000, SlippageBps: 5, ExactIn: true}
	if buy != wantBuy {
		t.Errorf("buy swap = %+v, want %+v", buy, wantBuy)
	}
	if sell != wantSell {
		t.Errorf("sell swap = %+v, want %+v", sell, wantSell)
	}

	for _, o := range exec.orders {
		if o.Market != testMarket || o.SizeLots != 10 || o.MaxQuoteLots != 10_000_000 || o.OrderType != execDomain.OrderTypeMarket {
			t.Errorf("unexpected order %+v", o)
		}
	}
	// Both orders share the frozen clock; ids must still differ.
	if exec.orders[0].ClientOrderID == exec.orders[1].ClientOrderID {
		t.Error("client order ids must be unique")
	}
}
