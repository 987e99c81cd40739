package app

import (
	"testing"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	pricingApp "github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/perp-arbitrage-bot/internal/logger"
)

type fakeFreshness struct {
	f pricingApp.Freshness
}

func (f fakeFreshness) Freshness() pricingApp.Freshness { return f.f }

func TestArbitrageService_ReportFeeds(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reporter := newRecordingReporter()

	svc := NewArbitrageService(nil, nil, reporter, fakeFreshness{f: pricingApp.Freshness{
		BuyQuote:  now.Add(-10 * time.Second),
		SellQuote: now.Add(-1 * time.Second),
		Book:      now.Add(-6 * time.Second),
	}}, 5*time.Second, logger.Nop{})
	svc.now = func() time.Time { return now }

	svc.reportFeeds()

	book := reporter.statuses["OrderBook"]
	if book.connected || book.latency != 6*time.Second {
		t.Errorf("OrderBook status = %+v, want stale after 6s", book)
	}
	router := reporter.statuses["Router"]
	if !router.connected || router.latency != time.Second {
		t.Errorf("Router status = %+v, want fresh from the newest quote", router)
	}
}

func TestArbitrageService_ReportFeedsBeforeData(t *testing.T) {
	reporter := newRecordingReporter()
	svc := NewArbitrageService(nil, nil, reporter, fakeFreshness{}, 5*time.Second, logger.Nop{})

	svc.reportFeeds()

	if reporter.statuses["OrderBook"].connected || reporter.statuses["Router"].connected {
		t.Error("feeds with no data should be reported disconnected")
	}
}

func TestArbitrageService_Stats(t *testing.T) {
	h := newHarness(t, false)
	seq := newTestSequencer(t, h.exec, nil)
	svc := NewArbitrageService(h.eval, seq, h.reporter, fakeFreshness{}, time.Second, logger.Nop{})

	if _, err := seq.Execute(t.Context(), evalFor(domain.BuyLowSellHigh)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	st := svc.Stats()
	if st.Trades[domain.TradeCompleted] != 1 {
		t.Errorf("completed trades = %d, want 1", st.Trades[domain.TradeCompleted])
	}
	if _, ok := st.Directions[domain.BuyHighSellLow]; !ok {
		t.Error("stats should list every direction")
	}
}
