package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	r.ReportEvaluation(&domain.Evaluation{Direction: domain.BuyHighSellLow, Decision: domain.DecisionNoQuote, At: at})
	if strings.Contains(buf.String(), "no_quote") {
		t.Error("skipped evaluations should be hidden unless verbose")
	}

	eval := &domain.Evaluation{
		Direction: domain.BuyLowSellHigh,
		Decision:  domain.DecisionDryRun,
		At:        at,
		SwapPrice: decimal.RequireFromString("100"),
		PerpPrice: decimal.RequireFromString("100.5"),
	}
	r.ReportEvaluation(eval)
	if !strings.Contains(buf.String(), "[12:00:00.000] . BLSH swap_buy=100.0000 perp_bid=100.5000") {
		t.Errorf("missing evaluation line:\n%s", buf.String())
	}

	r.ReportTrade(&domain.Trade{
		ID:        "t-1",
		Direction: domain.BuyLowSellHigh,
		Status:    domain.TradeDangling,
		Legs: []domain.LegResult{
			{Kind: domain.LegSwap, Side: "buy", Signature: "sig-1"},
			{Kind: domain.LegPerp, Side: "ask", Error: "rejected"},
		},
		Error: "perp leg failed",
	})
	out := buf.String()
	if !strings.Contains(out, "TRADE t-1  dangling") || !strings.Contains(out, "FAILED: rejected") {
		t.Errorf("missing trade block:\n%s", out)
	}

	r.ReportAlert(domain.Alert{Code: apperror.CodeDanglingExposure, Message: "perp leg failed", At: at})
	if !strings.Contains(buf.String(), "ALERT [DANGLING_EXPOSURE] perp leg failed") {
		t.Errorf("missing alert:\n%s", buf.String())
	}
}

func TestConsoleReporter_StatusChangesOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, true)

	r.UpdateConnectionStatus("Router", true, time.Second)
	r.UpdateConnectionStatus("Router", true, 2*time.Second)
	r.UpdateConnectionStatus("Router", false, 6*time.Second)

	if got := strings.Count(buf.String(), "Router:"); got != 2 {
		t.Errorf("status lines = %d, want 2:\n%s", got, buf.String())
	}
}
