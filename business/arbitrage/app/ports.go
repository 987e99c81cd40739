// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	execDomain "github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
	pricingApp "github.com/fd1az/perp-arbitrage-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/perp-arbitrage-bot/business/pricing/domain"
	"github.com/shopspring/decimal"
)

// QuoteMailbox is the consumer side of a quote feed.
type QuoteMailbox interface {
	// DrainLatest returns the newest quote and empties the slot.
	DrainLatest() (pricingDomain.PriceQuote, bool)
}

// BookReader reads the opposing perp snapshot.
type BookReader = pricingApp.SnapshotReader

// PositionReader reads the net perp position.
type PositionReader interface {
	PositionBaseUI(ctx context.Context) (decimal.Decimal, bool, error)
}

// Executor submits trade legs.
type Executor interface {
	PlacePerpOrder(ctx context.Context, order execDomain.PerpOrder) (execDomain.Signature, error)
	Swap(ctx context.Context, req execDomain.SwapRequest) (execDomain.Signature, error)
}

// Reporter defines the interface for displaying evaluations and trades.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportEvaluation shows the outcome of one directional tick.
	ReportEvaluation(eval *domain.Evaluation)

	// ReportTrade shows a finished trade.
	ReportTrade(trade *domain.Trade)

	// ReportAlert shows an operator alert.
	ReportAlert(alert domain.Alert)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Alerter delivers operator alerts.
type Alerter interface {
	Alert(ctx context.Context, alert domain.Alert) error
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(ctx context.Context, alert domain.Alert) error

// Alert implements Alerter.
func (f AlertFunc) Alert(ctx context.Context, alert domain.Alert) error {
	return f(ctx, alert)
}

// Notifier sends free-form operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Journal records every trade outcome.
type Journal interface {
	Record(ctx context.Context, trade *domain.Trade) error
}

// FreshnessSource reports when each feed last produced data.
type FreshnessSource interface {
	Freshness() pricingApp.Freshness
}

// StatsSource exposes evaluation and trade counters.
type StatsSource interface {
	Stats() Stats
}
