package infra

import (
	"sync"
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui"
)

func TestTUIReporter_Forwards(t *testing.T) {
	var mu sync.Mutex
	var msgs []any
	r := NewTUIReporter(nil)
	r.send = func(msg any) {
		mu.Lock()
		msgs = append(msgs, msg)
		mu.Unlock()
	}

	r.ReportEvaluation(&domain.Evaluation{Direction: domain.BuyLowSellHigh})
	r.ReportTrade(&domain.Trade{ID: "t"})
	r.ReportAlert(domain.Alert{Message: "x"})
	r.UpdateConnectionStatus("OrderBook", true, time.Millisecond)

	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	if _, ok := msgs[0].(ui.EvaluationMsg); !ok {
		t.Errorf("msgs[0] = %T, want EvaluationMsg", msgs[0])
	}
	if st, ok := msgs[3].(ui.ConnectionStatusMsg); !ok || !st.Connected {
		t.Errorf("msgs[3] = %+v, want connected status", msgs[3])
	}
}

func TestStatsView(t *testing.T) {
	got := statsView(testStats())
	if got.Evaluations != 20 || got.Profitable != 2 || got.Skipped != 10 {
		t.Errorf("evaluation counters = %+v", got)
	}
	if got.Completed != 3 || got.Dangling != 1 || got.Aborted != 0 {
		t.Errorf("trade counters = %+v", got)
	}
}
