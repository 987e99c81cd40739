package monolith

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/internal/asset"
	"github.com/fd1az/perp-arbitrage-bot/internal/config"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

func testConfig() *config.Config {
	return &config.Config{Market: config.MarketConfig{
		BaseMint:      asset.MintWrappedSOL,
		BaseDecimals:  9,
		QuoteMint:     asset.MintUSDC,
		QuoteDecimals: 6,
	}}
}

type taskModule struct {
	task func(ctx context.Context) error
}

func (m taskModule) RegisterServices(di.Container) error { return nil }

func (m taskModule) Startup(_ context.Context, mono Monolith) error {
	mono.Go("test", m.task)
	return nil
}

func TestNew_RejectsMismatchedDecimals(t *testing.T) {
	cfg := testConfig()
	cfg.Market.BaseDecimals = 6
	if _, err := New(cfg, logger.Nop{}); err == nil {
		t.Error("New() should reject decimals that disagree with the known mint")
	}
}

func TestApp_TaskFailureStopsOthers(t *testing.T) {
	a, err := New(testConfig(), logger.Nop{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	boom := errors.New("stream terminated")
	stopped := make(chan struct{})

	long := taskModule{task: func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return nil
	}}
	failing := taskModule{task: func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return boom
	}}

	if err := a.StartModules(context.Background(), long, failing); err != nil {
		t.Fatalf("StartModules() error = %v", err)
	}

	if err := a.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
	select {
	case <-stopped:
	default:
		t.Error("long-running task should have been cancelled")
	}
}

func TestApp_CloseRunsInReverse(t *testing.T) {
	a, err := New(testConfig(), logger.Nop{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var order []int
	a.OnClose(func() error { order = append(order, 1); return nil })
	a.OnClose(func() error { order = append(order, 2); return errors.New("redis") })

	if err := a.Close(); err == nil {
		t.Error("Close() should report cleanup errors")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}
