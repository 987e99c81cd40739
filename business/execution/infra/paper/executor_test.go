package paper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const market = "ESdnpnNLgTkBCZRuTJkZLi5wKEZ2z47SG3PJrhundSQ2"

func newExecutor(t *testing.T, latency time.Duration) *Executor {
	t.Helper()
	e, err := New(Config{
		Market:       market,
		BaseDecimals: 9,
		BaseLotSize:  10_000_000,
		FillLatency:  latency,
	}, logger.Nop{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestExecutor_PositionTracksPerpFills(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, 0)

	_, exists, err := e.PositionBaseUI(ctx)
	if err != nil || exists {
		t.Fatalf("fresh executor: exists=%v err=%v, want no position", exists, err)
	}

	// 10 lots of 0.01 SOL = 0.1 SOL
	order := domain.PerpOrder{Market: market, Side: domain.PerpBid, SizeLots: 10, MaxQuoteLots: 1, OrderType: domain.OrderTypeMarket}
	sig, err := e.PlacePerpOrder(ctx, order)
	if err != nil {
		t.Fatalf("PlacePerpOrder() error = %v", err)
	}
	if !strings.HasPrefix(sig.String(), "paper-") {
		t.Errorf("signature = %s, want paper- prefix", sig)
	}

	order.Side = domain.PerpAsk
	order.SizeLots = 30
	if _, err := e.PlacePerpOrder(ctx, order); err != nil {
		t.Fatalf("PlacePerpOrder() error = %v", err)
	}

	base, exists, err := e.PositionBaseUI(ctx)
	if err != nil || !exists {
		t.Fatalf("PositionBaseUI() exists=%v err=%v", exists, err)
	}
	want := decimal.RequireFromString("-0.2")
	if !base.Equal(want) {
		t.Errorf("position = %s, want %s", base, want)
	}
}

func TestExecutor_SwapDoesNotMovePosition(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t, 0)

	_, err := e.Swap(ctx, domain.SwapRequest{InputMint: "A", OutputMint: "B", NativeAmount: 100_000_000})
	if err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if _, exists, _ := e.PositionBaseUI(ctx); exists {
		t.Error("swap should not open a perp position")
	}
	if got := len(e.Fills()); got != 1 {
		t.Errorf("fills = %d, want 1", got)
	}
}

func TestExecutor_SwapHonoursCancellation(t *testing.T) {
	e := newExecutor(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Swap(ctx, domain.SwapRequest{InputMint: "A", OutputMint: "B", NativeAmount: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Swap() error = %v, want context.Canceled", err)
	}
}

func TestExecutor_RejectsOtherMarket(t *testing.T) {
	e := newExecutor(t, 0)
	_, err := e.PlacePerpOrder(context.Background(), domain.PerpOrder{Market: "other", Side: domain.PerpBid, SizeLots: 1})
	if err == nil {
		t.Fatal("expected error for foreign market")
	}
}

func TestNew_RequiresMarketParameters(t *testing.T) {
	if _, err := New(Config{Market: market}, logger.Nop{}); err == nil {
		t.Fatal("expected configuration error")
	}
}
