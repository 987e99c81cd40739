package app

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

const statusInterval = time.Second

// ArbitrageService runs the evaluator and keeps the reporter informed about
// feed health.
type ArbitrageService struct {
	evaluator *Evaluator
	sequencer *Sequencer
	reporter  Reporter
	feeds     FreshnessSource
	stale     time.Duration
	logger    logger.LoggerInterface
	now       func() time.Time
}

// NewArbitrageService creates a new ArbitrageService. stale is the age after
// which a feed is shown as disconnected.
func NewArbitrageService(evaluator *Evaluator, sequencer *Sequencer, reporter Reporter, feeds FreshnessSource, stale time.Duration, log logger.LoggerInterface) *ArbitrageService {
	return &ArbitrageService{
		evaluator: evaluator,
		sequencer: sequencer,
		reporter:  reporter,
		feeds:     feeds,
		stale:     stale,
		logger:    log,
		now:       time.Now,
	}
}

// Evaluator returns the evaluator.
func (s *ArbitrageService) Evaluator() *Evaluator { return s.evaluator }

// Sequencer returns the sequencer.
func (s *ArbitrageService) Sequencer() *Sequencer { return s.sequencer }

// Run blocks until ctx is cancelled.
func (s *ArbitrageService) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx)
	p.Go(s.evaluator.Run)
	p.Go(s.watchFeeds)
	return p.Wait()
}

// Stats implements StatsSource.
func (s *ArbitrageService) Stats() Stats {
	st := s.evaluator.Stats()
	st.Trades = s.sequencer.Counts()
	return st
}

func (s *ArbitrageService) watchFeeds(ctx context.Context) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.reportFeeds()
		}
	}
}

func (s *ArbitrageService) reportFeeds() {
	f := s.feeds.Freshness()
	now := s.now()

	report := func(name string, last time.Time) {
		if last.IsZero() {
			s.reporter.UpdateConnectionStatus(name, false, 0)
			return
		}
		age := now.Sub(last)
		s.reporter.UpdateConnectionStatus(name, age <= s.stale, age)
	}

	report("OrderBook", f.Book)
	report("Router", latest(f.BuyQuote, f.SellQuote))
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
