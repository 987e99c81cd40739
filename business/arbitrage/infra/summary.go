package infra

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

// Summary periodically logs the evaluation and trade counters and forwards
// them to an optional notifier.
type Summary struct {
	cron     *cron.Cron
	stats    app.StatsSource
	notifier app.Notifier
	logger   logger.LoggerInterface
}

// NewSummary schedules the summary on spec (standard cron or "@every 1m").
// notifier may be nil.
func NewSummary(spec string, stats app.StatsSource, notifier app.Notifier, log logger.LoggerInterface) (*Summary, error) {
	s := &Summary{
		cron:     cron.New(),
		stats:    stats,
		notifier: notifier,
		logger:   log,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Emit(context.Background()) }); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("summary schedule "+spec))
	}
	return s, nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Summary) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Emit writes one summary now.
func (s *Summary) Emit(ctx context.Context) {
	st := s.stats.Stats()
	text := FormatSummary(st)

	args := []any{}
	for _, d := range domain.Directions {
		ds := st.Directions[d]
		prefix := strings.ToLower(d.ShortString())
		args = append(args,
			prefix+"_evaluations", ds.Evaluations,
			prefix+"_profitable", ds.Profitable,
			prefix+"_trades", ds.Trades,
		)
	}
	for status, n := range st.Trades {
		args = append(args, "trades_"+string(status), n)
	}
	s.logger.Info(ctx, "arbitrage summary", args...)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Warn(ctx, "summary notification failed", "error", err)
		}
	}
}

// FormatSummary renders stats as a short multi-line message.
func FormatSummary(st app.Stats) string {
	var b strings.Builder
	b.WriteString("Arbitrage summary\n")
	for _, d := range domain.Directions {
		ds := st.Directions[d]
		fmt.Fprintf(&b, "%s: %d evals, %d profitable, %d dry-run, %d trades",
			d.ShortString(), ds.Evaluations, ds.Profitable, ds.DryRuns, ds.Trades)
		if ds.Last != nil && ds.Last.Decision.Priced() {
			fmt.Fprintf(&b, ", last spread %s%%", ds.Last.Spread.Percent().StringFixed(4))
		}
		b.WriteString("\n")
	}

	statuses := make([]string, 0, len(st.Trades))
	for status := range st.Trades {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(&b, "trades %s: %d\n", status, st.Trades[domain.TradeStatus(status)])
	}
	return strings.TrimRight(b.String(), "\n")
}
