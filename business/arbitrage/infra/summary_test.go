package infra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

type staticStats app.Stats

func (s staticStats) Stats() app.Stats { return app.Stats(s) }

type recordingNotifier struct {
	texts []string
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.texts = append(n.texts, text)
	return n.err
}

func testStats() app.Stats {
	last := &domain.Evaluation{
		Direction: domain.BuyLowSellHigh,
		Decision:  domain.DecisionBelowThreshold,
	}
	last.Spread = last.Direction.Spread(decimal.RequireFromString("100"), decimal.RequireFromString("100.25"))
	return app.Stats{
		Directions: map[domain.Direction]app.DirectionStats{
			domain.BuyLowSellHigh: {Evaluations: 10, Profitable: 2, DryRuns: 2, Last: last},
			domain.BuyHighSellLow: {Evaluations: 10, Skipped: 10},
		},
		Trades: map[domain.TradeStatus]int64{
			domain.TradeDangling:  1,
			domain.TradeCompleted: 3,
		},
	}
}

func TestFormatSummary(t *testing.T) {
	got := FormatSummary(testStats())

	for _, want := range []string{
		"BLSH: 10 evals, 2 profitable, 2 dry-run, 0 trades, last spread 0.2500%",
		"BHSL: 10 evals, 0 profitable, 0 dry-run, 0 trades",
		"trades completed: 3\ntrades dangling: 1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_EmitNotifies(t *testing.T) {
	n := &recordingNotifier{}
	s, err := NewSummary("@every 1m", staticStats(testStats()), n, logger.Nop{})
	if err != nil {
		t.Fatalf("NewSummary() error = %v", err)
	}

	s.Emit(context.Background())
	if len(n.texts) != 1 {
		t.Fatalf("notifications = %d, want 1", len(n.texts))
	}

	// A failing notifier is logged, not fatal.
	n.err = errors.New("down")
	s.Emit(context.Background())
	if len(n.texts) != 2 {
		t.Errorf("notifications = %d, want 2", len(n.texts))
	}
}

func TestSummary_RunStopsOnCancel(t *testing.T) {
	s, err := NewSummary("@every 1h", staticStats(testStats()), nil, logger.Nop{})
	if err != nil {
		t.Fatalf("NewSummary() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestNewSummary_BadSchedule(t *testing.T) {
	_, err := NewSummary("every minute", staticStats{}, nil, logger.Nop{})
	if !apperror.IsCode(err, apperror.CodeConfigurationError) {
		t.Errorf("error = %v, want CONFIGURATION_ERROR", err)
	}
}
