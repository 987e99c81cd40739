// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	connected map[string]bool
	now       func() time.Time
}

// NewConsoleReporter creates a ConsoleReporter. Skipped evaluations are only
// printed when verbose is set.
func NewConsoleReporter(out io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:       out,
		verbose:   verbose,
		connected: make(map[string]bool),
		now:       time.Now,
	}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Perp/Swap Arbitrage Bot Started")
	fmt.Fprintln(r.out, "===============================")
	return nil
}

// ReportEvaluation prints the evaluation summary line.
func (r *ConsoleReporter) ReportEvaluation(eval *domain.Evaluation) {
	if !r.verbose && !eval.Decision.Priced() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s\n", r.stamp(eval.At), eval.Summary())
}

// ReportTrade prints a trade block.
func (r *ConsoleReporter) ReportTrade(trade *domain.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "TRADE %s  %s\n", trade.ID, trade.Status)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Started:        %s\n", trade.StartedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(r.out, "Direction:      %s\n", trade.Direction.String())
	fmt.Fprintf(r.out, "Size:           %s base\n", trade.BaseQty.String())
	fmt.Fprintf(r.out, "Swap price:     %s\n", trade.SwapPrice.StringFixed(4))
	fmt.Fprintf(r.out, "Perp price:     %s\n", trade.PerpPrice.StringFixed(4))
	fmt.Fprintf(r.out, "Spread:         %s%%\n", trade.SpreadPct.StringFixed(4))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	for i, leg := range trade.Legs {
		result := string(leg.Signature)
		if !leg.OK() {
			result = "FAILED: " + leg.Error
		}
		fmt.Fprintf(r.out, "  %d. %-4s %-5s %8s  %s\n", i+1, leg.Kind, leg.Side, leg.Elapsed.Round(time.Millisecond), result)
	}
	if trade.Error != "" {
		fmt.Fprintf(r.out, "Error:          %s\n", trade.Error)
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportAlert prints an alert line.
func (r *ConsoleReporter) ReportAlert(alert domain.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] ALERT %s\n", r.stamp(alert.At), alert.Text())
}

// UpdateConnectionStatus prints connection status changes only.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.connected[name]
	if seen && prev == connected {
		return
	}
	r.connected[name] = connected

	status := "stale"
	if connected {
		status = fmt.Sprintf("fresh (%s)", latency.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", r.stamp(time.Time{}), name, status)
}

// Stop prints the shutdown line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Perp/Swap Arbitrage Bot Stopped")
	return nil
}

func (r *ConsoleReporter) stamp(at time.Time) string {
	if at.IsZero() {
		at = r.now()
	}
	return at.Format("15:04:05.000")
}
