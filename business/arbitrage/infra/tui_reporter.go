package infra

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui"
	"github.com/fd1az/perp-arbitrage-bot/pkg/ui/components"
)

const tuiStatsInterval = time.Second

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter implements Reporter by forwarding to the Bubble Tea program.
type TUIReporter struct {
	send   func(msg any)
	stats  app.StatsSource
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTUIReporter creates a TUIReporter. When stats is non-nil the counters
// panel is refreshed every second.
func NewTUIReporter(stats app.StatsSource) *TUIReporter {
	return &TUIReporter{
		send:  func(msg any) { ui.Send(msg) },
		stats: stats,
	}
}

// SetStatsSource sets the counters source once the service exists.
func (r *TUIReporter) SetStatsSource(stats app.StatsSource) {
	r.stats = stats
}

// Start begins the stats refresh loop.
func (r *TUIReporter) Start(ctx context.Context) error {
	if r.stats == nil {
		return nil
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(tuiStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.send(ui.StatsMsg{Stats: statsView(r.stats.Stats())})
			}
		}
	}()
	return nil
}

// ReportEvaluation sends the evaluation to the TUI.
func (r *TUIReporter) ReportEvaluation(eval *domain.Evaluation) {
	r.send(ui.EvaluationMsg{Evaluation: eval})
}

// ReportTrade sends the trade to the TUI.
func (r *TUIReporter) ReportTrade(trade *domain.Trade) {
	r.send(ui.TradeMsg{Trade: trade})
}

// ReportAlert sends the alert to the TUI.
func (r *TUIReporter) ReportAlert(alert domain.Alert) {
	r.send(ui.AlertMsg{Alert: alert})
}

// UpdateConnectionStatus sends feed status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop ends the stats refresh loop.
func (r *TUIReporter) Stop() error {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
	}
	return nil
}

func statsView(st app.Stats) components.Stats {
	var out components.Stats
	for _, ds := range st.Directions {
		out.Evaluations += ds.Evaluations
		out.Profitable += ds.Profitable
		out.DryRuns += ds.DryRuns
		out.Skipped += ds.Skipped
	}
	out.Completed = st.Trades[domain.TradeCompleted]
	out.Aborted = st.Trades[domain.TradeAborted]
	out.Dangling = st.Trades[domain.TradeDangling]
	return out
}
